package tui

import (
	"sort"
	"time"

	"github.com/roomwatch/roomwatch/internal/model"
)

// OpenRoom is a classroom that is free right now.
type OpenRoom struct {
	Name  string
	Until string // "15:04"
}

// OpenNow returns the rooms of b whose free window covers now, ordered by
// name. Slot bounds are compared as zero-padded "15:04" strings in now's
// location.
func OpenNow(b model.Building, now time.Time) []OpenRoom {
	hhmm := now.Format("15:04")
	var out []OpenRoom
	for _, room := range b.Classrooms {
		for _, slot := range room.Availability {
			if slot.Start <= hhmm && hhmm < slot.End {
				out = append(out, OpenRoom{Name: room.Name, Until: slot.End})
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// OpensLater counts rooms that are busy now but have a free window later
// today.
func OpensLater(b model.Building, now time.Time) int {
	hhmm := now.Format("15:04")
	n := 0
	for _, room := range b.Classrooms {
		openNow, later := false, false
		for _, slot := range room.Availability {
			if slot.Start <= hhmm && hhmm < slot.End {
				openNow = true
			}
			if slot.Start > hhmm {
				later = true
			}
		}
		if !openNow && later {
			n++
		}
	}
	return n
}

// sortedCodes returns building codes in a stable order.
func sortedCodes(bs model.Buildings) []string {
	codes := make([]string, 0, len(bs))
	for code := range bs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// clockLabel renders "15:30" as "3:30 PM". Unparseable input is returned as is.
func clockLabel(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}
