package experience

import (
	"testing"
	"time"

	"mapquester/models"
)

func TestPendingPointGesture_Expires(t *testing.T) {
	d := &manualDispatcher{}
	expired := 0
	g := NewPendingPointGesture(d, 3*time.Second, func() { expired++ })

	g.Place(models.Coordinate{Latitude: 1, Longitude: 2})
	d.advance(2999 * time.Millisecond)
	if _, ok := g.Pending(); !ok {
		t.Fatal("expected the affordance before 3s")
	}
	d.advance(2 * time.Millisecond)
	if _, ok := g.Pending(); ok {
		t.Error("expected the affordance to expire after 3s")
	}
	if expired != 1 {
		t.Errorf("expected one expiry callback, got %d", expired)
	}
}

func TestPendingPointGesture_NewTapRestartsTimer(t *testing.T) {
	d := &manualDispatcher{}
	g := NewPendingPointGesture(d, 3*time.Second, nil)

	g.Place(models.Coordinate{Latitude: 1})
	d.advance(2 * time.Second)
	g.Place(models.Coordinate{Latitude: 2})
	d.advance(2 * time.Second)

	c, ok := g.Pending()
	if !ok || c.Latitude != 2 {
		t.Fatalf("expected second tap pending, got %v %v", c, ok)
	}
	if d.activeTimers() != 1 {
		t.Errorf("expected exactly one live timer, got %d", d.activeTimers())
	}
}

func TestPendingPointGesture_PromoteCancels(t *testing.T) {
	d := &manualDispatcher{}
	expired := false
	g := NewPendingPointGesture(d, 3*time.Second, func() { expired = true })

	g.Place(models.Coordinate{Latitude: 5})
	c, ok := g.Promote()
	if !ok || c.Latitude != 5 {
		t.Fatalf("expected promotion to return the coordinate, got %v %v", c, ok)
	}
	if d.activeTimers() != 0 {
		t.Error("expected promotion to cancel the timer")
	}
	d.advance(10 * time.Second)
	if expired {
		t.Error("expected no expiry after promotion")
	}
	if _, ok := g.Promote(); ok {
		t.Error("expected nothing left to promote")
	}
}

func TestPendingPointGesture_StaleFireIgnored(t *testing.T) {
	d := &manualDispatcher{}
	g := NewPendingPointGesture(d, time.Second, nil)

	g.Place(models.Coordinate{Latitude: 1})
	stale := d.timers[0]
	g.Place(models.Coordinate{Latitude: 2})

	// A dispatcher that lost the race with Cancel still must not clear the
	// newer location.
	stale.fn()
	if _, ok := g.Pending(); !ok {
		t.Error("expected a stale timer to leave the new location alone")
	}
}
