package web

import (
	"slotplan/internal/dimension"
	"slotplan/internal/grid"
	"slotplan/internal/model"
)

// SlotplanView is the structured form of the full schedule, ready for the
// HTML table template: one block per level-1 category, level-3 slots as
// rows, level-2 tracks as columns.
type SlotplanView struct {
	Days []DayView
}

// DayView is one level-1 category of the plan.
type DayView struct {
	Index int
	Name  string
	Rooms []string
	Rows  []RowView
}

// RowView is one level-3 slot across all level-2 tracks of a category.
type RowView struct {
	Slot  string
	Cells []CellView
}

// CellView is a single slot of the grid. Scheduled is false for empty
// slots and for dangling ids whose contribution no longer resolves.
type CellView struct {
	Scheduled bool
	ID        string
	Title     string
	Speaker   string
	Twitter   string
}

// buildSlotplan flattens a document snapshot into the view model. The
// snapshot is already a deep copy, so this can run without any locking.
func buildSlotplan(doc model.Document) SlotplanView {
	set := dimension.Set(doc.SlotDimensionNames)
	g := grid.Grid(doc.Schedule)

	var view SlotplanView
	for i, name := range set.Level1() {
		rooms, err := set.Level2Axis(i)
		if err != nil {
			continue
		}
		slots, err := set.Level3Axis(i)
		if err != nil {
			continue
		}

		day := DayView{Index: i, Name: name, Rooms: rooms}
		for l3, slot := range slots {
			row := RowView{Slot: slot}
			for l2 := range rooms {
				row.Cells = append(row.Cells, buildCell(doc, g, i, l2, l3))
			}
			day.Rows = append(day.Rows, row)
		}
		view.Days = append(view.Days, day)
	}
	return view
}

func buildCell(doc model.Document, g grid.Grid, l1, l2, l3 int) CellView {
	id, ok := g.Lookup(l1, l2, l3)
	if !ok {
		return CellView{}
	}
	c, ok := doc.Contributions[id]
	if !ok {
		return CellView{}
	}
	return CellView{
		Scheduled: true,
		ID:        id,
		Title:     c.Title,
		Speaker:   c.FirstName + " " + c.LastName,
		Twitter:   c.TwitterHandle,
	}
}
