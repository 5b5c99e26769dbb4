package experience

import "mapquester/models"

// FocusZoom is the minimum zoom used when flying to a single point.
const FocusZoom = 14

// Padding is the camera edge inset in pixels.
type Padding struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// ViewState is the map camera pose.
type ViewState struct {
	Longitude float64
	Latitude  float64
	Zoom      float64
	Pitch     float64
	Bearing   float64
	Padding   Padding
}

// Center returns the camera target.
func (v ViewState) Center() models.Coordinate {
	return models.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude}
}

// FlyTo returns v re-centred on c, zoomed in to at least FocusZoom.
func (v ViewState) FlyTo(c models.Coordinate) ViewState {
	v.Latitude = c.Latitude
	v.Longitude = c.Longitude
	if v.Zoom < FocusZoom {
		v.Zoom = FocusZoom
	}
	return v
}

// Camera owns the single ViewState instance.
type Camera struct {
	view          ViewState
	userMoved     bool
	centeredOnFix bool
}

func NewCamera(initial ViewState) *Camera {
	return &Camera{view: initial}
}

func (c *Camera) View() ViewState {
	return c.view
}

// Move overwrites the pose after a pan or zoom gesture.
func (c *Camera) Move(v ViewState) {
	c.view = v
	c.userMoved = true
}

func (c *Camera) FlyTo(target models.Coordinate) {
	c.view = c.view.FlyTo(target)
}

// FollowFix centres on the first fix unless the user already moved the map.
func (c *Camera) FollowFix(fix models.Fix) bool {
	if c.centeredOnFix || c.userMoved {
		return false
	}
	c.centeredOnFix = true
	c.view.Latitude = fix.Latitude
	c.view.Longitude = fix.Longitude
	return true
}
