package models

import "time"

// ViewMode selects between the map and the paginated list presentation.
type ViewMode int

const (
	MapView ViewMode = iota
	ListView
)

func (m ViewMode) String() string {
	if m == ListView {
		return "list"
	}
	return "map"
}

// ParseViewMode accepts "map" or "list".
func ParseViewMode(s string) (ViewMode, bool) {
	switch s {
	case "map":
		return MapView, true
	case "list":
		return ListView, true
	}
	return MapView, false
}

// PointQuery is one page request against the points listing.
type PointQuery struct {
	Mode     ViewMode
	Tags     []Tag
	Page     int
	PageSize int
}

// PointPage is the decoded listing response. TotalPages is only set when the
// backend sent pagination (list mode).
type PointPage struct {
	Points        []Point
	TotalPages    int
	HasPagination bool
}

// Fix is a single live position report.
type Fix struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy_m,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Position returns the fix coordinate.
func (f Fix) Position() Coordinate {
	return Coordinate{Latitude: f.Latitude, Longitude: f.Longitude}
}
