// Package ical exports the slot plan as an iCalendar feed, so attendees
// can subscribe to the schedule from their own calendar apps.
package ical

import (
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"

	"slotplan/internal/dimension"
	"slotplan/internal/grid"
	applog "slotplan/internal/log"
	"slotplan/internal/model"
)

// Options control how grid slots are mapped to concrete event times.
type Options struct {
	// Event is the display name used in the calendar metadata.
	Event string
	// Dates holds one "2006-01-02" date per level-1 category, in axis
	// order. Categories without a date are skipped.
	Dates []string
	// SlotMinutes is the assumed session duration.
	SlotMinutes int
	// Location is the timezone the date and slot labels are local to.
	Location *time.Location
}

// Export renders the scheduled slots of the document as an iCalendar
// payload. Only slots whose level-1 category has a configured date and
// whose level-3 label parses as "15:04" become events; everything else is
// skipped with a debug log, since level-3 axes are free-form labels.
func Export(doc model.Document, opts Options) string {
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 45
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//slotplan//slotplan " + opts.Event + "//EN")

	set := dimension.Set(doc.SlotDimensionNames)
	g := grid.Grid(doc.Schedule)
	now := time.Now().In(opts.Location)

	for _, l1 := range sortedKeys(g) {
		day, ok := dayStart(l1, opts)
		if !ok {
			applog.Debug("ical: no date for level-1 category, skipping", "level1", l1)
			continue
		}
		level2Names, err := set.Level2Axis(l1)
		if err != nil {
			continue
		}
		level3Names, err := set.Level3Axis(l1)
		if err != nil {
			continue
		}

		for _, l2 := range sortedKeys(g[l1]) {
			for _, l3 := range sortedKeys(g[l1][l2]) {
				id := g[l1][l2][l3]
				c, ok := doc.Contributions[id]
				if !ok {
					continue
				}
				if l3 < 0 || l3 >= len(level3Names) {
					continue
				}
				tod, err := time.Parse("15:04", level3Names[l3])
				if err != nil {
					applog.Debug("ical: level-3 label is not a time, skipping",
						"label", level3Names[l3], "level1", l1)
					continue
				}

				start := day.Add(time.Duration(tod.Hour())*time.Hour +
					time.Duration(tod.Minute())*time.Minute)

				ev := cal.AddEvent(fmt.Sprintf("slot-%d-%d-%d@slotplan", l1, l2, l3))
				ev.SetDtStampTime(now)
				ev.SetStartAt(start)
				ev.SetEndAt(start.Add(time.Duration(opts.SlotMinutes) * time.Minute))
				ev.SetSummary(fmt.Sprintf("%s — %s %s", c.Title, c.FirstName, c.LastName))
				if l2 >= 0 && l2 < len(level2Names) {
					ev.SetLocation(level2Names[l2])
				}
				if c.Abstract != "" {
					ev.SetDescription(c.Abstract)
				}
			}
		}
	}

	return cal.Serialize()
}

// dayStart resolves the midnight of the configured date for a level-1
// index.
func dayStart(l1 int, opts Options) (time.Time, bool) {
	if l1 < 0 || l1 >= len(opts.Dates) {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", opts.Dates[l1], opts.Location)
	if err != nil {
		applog.Error("ical: unparseable event date", err, "date", opts.Dates[l1], "level1", l1)
		return time.Time{}, false
	}
	return day, true
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
