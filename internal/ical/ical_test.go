package ical

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotplan/internal/model"
)

func testDoc() model.Document {
	doc := model.NewDocument()
	doc.Contributions["0"] = model.Contribution{
		FirstName: "Jane", LastName: "Doe", Title: "Go in Anger", Abstract: "All of it.",
	}
	doc.Contributions["1"] = model.Contribution{
		FirstName: "John", LastName: "Roe", Title: "Lightning Talks",
	}
	doc.SlotDimensionNames = [][]string{
		{"Sat"},
		{"Room A", "Room B"},
		{"10:00", "Afternoon"},
	}
	doc.Schedule = map[int]map[int]map[int]string{
		0: {
			0: {0: "0", 1: "1"}, // 10:00 and the non-time "Afternoon" slot
		},
	}
	return doc
}

func TestExport(t *testing.T) {
	payload := Export(testDoc(), Options{
		Event:       "Test Camp",
		Dates:       []string{"2026-09-12"},
		SlotMinutes: 30,
		Location:    time.UTC,
	})

	assert.Contains(t, payload, "BEGIN:VCALENDAR")
	assert.Contains(t, payload, "UID:slot-0-0-0@slotplan")
	assert.Contains(t, payload, "Go in Anger")
	assert.Contains(t, payload, "LOCATION:Room A")
	assert.Contains(t, payload, "DTSTART:20260912T100000Z")
	assert.Contains(t, payload, "DTEND:20260912T103000Z")
	assert.Contains(t, payload, "All of it.")

	// The "Afternoon" label does not parse as a time; no event for it.
	assert.NotContains(t, payload, "Lightning Talks")
	require.Equal(t, 1, strings.Count(payload, "BEGIN:VEVENT"))
}

func TestExportSkipsDayWithoutDate(t *testing.T) {
	payload := Export(testDoc(), Options{
		Event:    "Test Camp",
		Dates:    nil,
		Location: time.UTC,
	})
	assert.NotContains(t, payload, "BEGIN:VEVENT")
}

func TestExportIgnoresDanglingIDs(t *testing.T) {
	doc := testDoc()
	doc.Schedule[0][0][0] = "99"

	payload := Export(doc, Options{
		Event:    "Test Camp",
		Dates:    []string{"2026-09-12"},
		Location: time.UTC,
	})
	assert.NotContains(t, payload, "slot-0-0-0")
}
