package model

import "time"

// Section names one of the four stands around the playing field.
type Section string

const (
	SectionTop    Section = "top"
	SectionBottom Section = "bottom"
	SectionLeft   Section = "left"
	SectionRight  Section = "right"
)

// Sections lists every stand in the order seats are generated.
var Sections = []Section{SectionTop, SectionBottom, SectionLeft, SectionRight}

// Valid reports whether s is one of the four known stands.
func (s Section) Valid() bool {
	switch s {
	case SectionTop, SectionBottom, SectionLeft, SectionRight:
		return true
	}
	return false
}

// SideLayout describes the grid of one stand.
type SideLayout struct {
	Rows        int `json:"rows"`
	SeatsPerRow int `json:"seatsPerRow"`
}

// LayoutConfig is the rendering description of a venue.  It is stored as
// JSON in seat_maps.layout_json and is never consulted for availability.
type LayoutConfig struct {
	Top    SideLayout `json:"top"`
	Bottom SideLayout `json:"bottom"`
	Left   SideLayout `json:"left"`
	Right  SideLayout `json:"right"`
}

// Side returns the grid configured for the given stand.
func (l LayoutConfig) Side(s Section) SideLayout {
	switch s {
	case SectionTop:
		return l.Top
	case SectionBottom:
		return l.Bottom
	case SectionLeft:
		return l.Left
	case SectionRight:
		return l.Right
	}
	return SideLayout{}
}

// Capacity is the total number of seats the layout describes.
func (l LayoutConfig) Capacity() int {
	n := 0
	for _, s := range Sections {
		side := l.Side(s)
		n += side.Rows * side.SeatsPerRow
	}
	return n
}

// SeatMap represents a venue (stadium) whose seats can be booked.
//
// Fields:
//
//	ID        – seat_maps.id
//	Name      – unique display name of the venue.
//	Layout    – stand geometry, see LayoutConfig.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type SeatMap struct {
	ID        uint64       `json:"id"`
	Name      string       `json:"name"`
	Layout    LayoutConfig `json:"layoutConfig"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
