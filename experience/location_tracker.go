package experience

import (
	"context"

	"mapquester/models"
	"mapquester/utils/logger"
)

// PermissionState is the location permission lifecycle.
type PermissionState int

const (
	PermissionUnrequested PermissionState = iota
	PermissionPrompting
	PermissionGranted
	PermissionDenied
)

func (p PermissionState) String() string {
	switch p {
	case PermissionPrompting:
		return "prompting"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unrequested"
	}
}

// LocationTracker keeps the latest user position from a LocationSource.
type LocationTracker struct {
	source LocationSource
	disp   Dispatcher

	state    PermissionState
	location *models.Fix
	cancel   context.CancelFunc
	seq      uint64

	onFix func(models.Fix)
}

func NewLocationTracker(source LocationSource, disp Dispatcher, onFix func(models.Fix)) *LocationTracker {
	return &LocationTracker{source: source, disp: disp, onFix: onFix}
}

func (t *LocationTracker) State() PermissionState { return t.state }

// Location returns the latest fix, if any.
func (t *LocationTracker) Location() (models.Fix, bool) {
	if t.location == nil {
		return models.Fix{}, false
	}
	return *t.location, true
}

// Start requests permission and, once granted, subscribes to fixes. It only
// acts from the Unrequested state.
func (t *LocationTracker) Start(ctx context.Context) {
	if t.state != PermissionUnrequested {
		return
	}
	if t.source == nil {
		t.state = PermissionDenied
		return
	}
	t.state = PermissionPrompting
	t.seq++
	seq := t.seq
	subCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	source := t.source
	t.disp.Go(func(context.Context) func() {
		if err := source.RequestPermission(subCtx); err != nil {
			return func() { t.deny(seq, err) }
		}
		fixes, err := source.Watch(subCtx)
		if err != nil {
			return func() { t.deny(seq, err) }
		}
		return func() { t.grant(subCtx, seq, fixes) }
	})
}

func (t *LocationTracker) deny(seq uint64, err error) {
	if seq != t.seq {
		return
	}
	logger.Info("Location: unavailable, continuing without user marker: %v", err)
	t.state = PermissionDenied
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *LocationTracker) grant(ctx context.Context, seq uint64, fixes <-chan models.Fix) {
	if seq != t.seq {
		return
	}
	t.state = PermissionGranted
	t.disp.Go(func(context.Context) func() {
		for {
			select {
			case <-ctx.Done():
				return nil
			case fix, ok := <-fixes:
				if !ok {
					return nil
				}
				t.disp.Post(func() { t.apply(seq, fix) })
			}
		}
	})
}

func (t *LocationTracker) apply(seq uint64, fix models.Fix) {
	if seq != t.seq {
		return
	}
	t.location = &fix
	if t.onFix != nil {
		t.onFix(fix)
	}
}

// Stop cancels the subscription and forgets the last fix. Fixes already
// queued are ignored. A granted or pending permission goes back to
// Unrequested so the next Start subscribes again; a denial is kept.
func (t *LocationTracker) Stop() {
	t.seq++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.state != PermissionDenied {
		t.state = PermissionUnrequested
	}
	t.location = nil
}
