package experience

import (
	"time"

	"mapquester/models"
)

// DefaultPendingTTL is how long the "Add Point Here" affordance stays up.
const DefaultPendingTTL = 3 * time.Second

// PendingPointGesture holds the coordinate of an empty-map tap until it is
// promoted to a draft, replaced, or expires.
type PendingPointGesture struct {
	disp Dispatcher
	ttl  time.Duration

	location *models.Coordinate
	task     Task
	seq      uint64

	onExpire func()
}

func NewPendingPointGesture(disp Dispatcher, ttl time.Duration, onExpire func()) *PendingPointGesture {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingPointGesture{disp: disp, ttl: ttl, onExpire: onExpire}
}

// Pending returns the candidate coordinate while the affordance is shown.
func (g *PendingPointGesture) Pending() (models.Coordinate, bool) {
	if g.location == nil {
		return models.Coordinate{}, false
	}
	return *g.location, true
}

// Place replaces any previous candidate with c and restarts the expiry timer.
func (g *PendingPointGesture) Place(c models.Coordinate) {
	g.Clear()
	g.location = &c
	seq := g.seq
	g.task = g.disp.AfterFunc(g.ttl, func() {
		if seq != g.seq || g.location == nil {
			return
		}
		g.location = nil
		g.task = nil
		g.seq++
		if g.onExpire != nil {
			g.onExpire()
		}
	})
}

// Promote returns the candidate and clears it.
func (g *PendingPointGesture) Promote() (models.Coordinate, bool) {
	c, ok := g.Pending()
	if ok {
		g.Clear()
	}
	return c, ok
}

// Clear cancels the timer and hides the affordance.
func (g *PendingPointGesture) Clear() {
	if g.task != nil {
		g.task.Cancel()
		g.task = nil
	}
	g.location = nil
	g.seq++
}
