package model

import (
	"errors"
	"strings"
	"time"
)

// Slot is a window during which a classroom is free. Start and End are
// wall-clock times ("15:04") in the campus timezone.
type Slot struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Classroom is one room and the free windows reported for it today.
type Classroom struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Availability []Slot `json:"availability"`
}

// Building groups classrooms under a building code such as "CAS".
type Building struct {
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Classrooms []Classroom `json:"classrooms"`
}

// Buildings is keyed by building code.
type Buildings map[string]Building

// Availability holds free windows keyed by classroom id.
type Availability map[string][]Slot

// OpenClassrooms is the payload of GET /api/open-classrooms.
// LastUpdated is nil when the server has never produced data.
type OpenClassrooms struct {
	Buildings   Buildings `json:"buildings"`
	LastUpdated *string   `json:"last_updated"`
}

// CooldownStatus is the payload of GET /api/cooldown-status.
type CooldownStatus struct {
	InCooldown       bool    `json:"in_cooldown"`
	RemainingMinutes float64 `json:"remaining_minutes"`
}

// RefreshResult is the success payload of POST /api/refresh.
type RefreshResult struct {
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// LastUpdated is the payload of GET /api/last-updated.
type LastUpdated struct {
	LastUpdated *string `json:"last_updated"`
}

// timestampLayouts covers RFC 3339 with and without a zone offset, which is
// what Python's datetime.isoformat emits for aware and naive values.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ErrEmptyTimestamp is returned by ParseTimestamp for blank input.
var ErrEmptyTimestamp = errors.New("empty timestamp")

// ParseTimestamp parses an ISO 8601 timestamp as sent by the backend.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatTimestamp renders t the way the backend does.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
