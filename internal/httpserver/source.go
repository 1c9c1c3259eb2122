package httpserver

import (
	"context"
	"fmt"
	"hash/fnv"
	"maps"
	"math/rand/v2"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roomwatch/roomwatch/internal/catalog"
	"github.com/roomwatch/roomwatch/internal/model"
)

// MinGap is the shortest free window worth reporting. Shorter gaps between
// classes are folded into the surrounding busy time.
const MinGap = 28 * time.Minute

// Source produces today's free windows for every classroom in the catalog.
type Source interface {
	Availability(ctx context.Context, now time.Time) (model.Availability, error)
}

// SyntheticSource generates plausible class schedules. Output depends only on
// the seed, the calendar day in Location and the classroom id, so repeated
// scrapes on one day agree with each other. Generated days are memoized.
type SyntheticSource struct {
	Catalog  *catalog.Catalog
	Location *time.Location
	Seed     uint64

	once sync.Once
	days *lru.Cache[string, model.Availability]
}

// generatedDays bounds the memo; a stub only ever asks about today and
// occasionally yesterday.
const generatedDays = 8

var (
	classLengths = []int{50, 75, 110, 165}
	breakLengths = []int{10, 15, 30, 45, 60, 90, 120, 180}
)

// Availability implements Source.
func (s *SyntheticSource) Availability(ctx context.Context, now time.Time) (model.Availability, error) {
	if s.Catalog == nil {
		return nil, fmt.Errorf("synthetic source: no catalog")
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	day := now.In(loc).Format(time.DateOnly)

	s.once.Do(func() {
		s.days, _ = lru.New[string, model.Availability](generatedDays)
	})
	if cached, ok := s.days.Get(day); ok {
		return maps.Clone(cached), nil
	}

	out := make(model.Availability, len(s.Catalog.Classrooms))
	for _, room := range s.Catalog.Classrooms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, ok := s.Catalog.Building(room.Building)
		if !ok {
			continue
		}
		rng := rand.New(rand.NewPCG(s.Seed, dayRoomKey(day, room.ID)))
		out[room.ID] = freeWindows(rng, hoursToMinutes(b.Open), hoursToMinutes(b.Close))
	}
	s.days.Add(day, out)
	return maps.Clone(out), nil
}

func dayRoomKey(day, roomID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(day))
	h.Write([]byte{0})
	h.Write([]byte(roomID))
	return h.Sum64()
}

func hoursToMinutes(h float64) int {
	return int(h * 60)
}

// freeWindows lays classes over [open, close) and returns the gaps of at
// least MinGap, in order.
func freeWindows(rng *rand.Rand, open, closeAt int) []model.Slot {
	minGap := int(MinGap / time.Minute)
	var slots []model.Slot

	freeStart := open
	cursor := open
	for {
		cursor += breakLengths[rng.IntN(len(breakLengths))]
		length := classLengths[rng.IntN(len(classLengths))]
		if cursor+length > closeAt {
			break
		}
		if cursor-freeStart >= minGap {
			slots = append(slots, model.Slot{Start: clockLabel(freeStart), End: clockLabel(cursor)})
		}
		cursor += length
		freeStart = cursor
	}
	if closeAt-freeStart >= minGap {
		slots = append(slots, model.Slot{Start: clockLabel(freeStart), End: clockLabel(closeAt)})
	}
	return slots
}

func clockLabel(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
