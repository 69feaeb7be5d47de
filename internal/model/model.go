package model

// Contribution is a single submitted talk proposal. Field names match the
// persisted JSON document, which is meant to stay human-diffable and
// version-control friendly.
type Contribution struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	TwitterHandle string `json:"twitter_handle"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
}

// Document is the complete persisted state of the slot planner.
//
// The layout is designed for easy JSON (de)serialisation:
//
//	{
//	  "contributions": {
//	    "0": {"first_name": ..., "last_name": ..., ...}
//	  },
//	  "slot_dimension_names": [
//	    ["Sat", "Sun"],          // level-1 categories
//	    ["Room A", "Room B"],    // level-2 axis for level-1 index 0
//	    ["Room C"],              // level-2 axis for level-1 index 1
//	    ["10:00", "11:00"],      // level-3 axis for level-1 index 0
//	    ["10:00"]                // level-3 axis for level-1 index 1
//	  ],
//	  "schedule": {"0": {"0": {"1": "3"}}}
//	}
//
// Contribution ids are stringified non-negative integers. The schedule is a
// sparse 3-level mapping from zero-based axis indices to a contribution id;
// int-keyed maps marshal to the stringified-index object shown above.
type Document struct {
	Contributions      map[string]Contribution        `json:"contributions"`
	SlotDimensionNames [][]string                     `json:"slot_dimension_names"`
	Schedule           map[int]map[int]map[int]string `json:"schedule"`
}

// NewDocument returns an empty document with all containers initialised,
// matching the shape written on a fresh start.
func NewDocument() Document {
	return Document{
		Contributions:      map[string]Contribution{},
		SlotDimensionNames: [][]string{},
		Schedule:           map[int]map[int]map[int]string{},
	}
}
