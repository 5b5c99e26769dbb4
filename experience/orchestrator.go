// Package experience is the map experience controller: viewport, points,
// filters, pagination, selection and draft editing, location and address-bar
// state kept consistent on a single logical thread.
//
// Every exported Orchestrator method must be called on the Dispatcher's loop.
package experience

import (
	"context"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/geo"
	"mapquester/utils/logger"
)

var (
	ErrReadOnly          = errors.New("read-only presentation")
	ErrNoPendingLocation = errors.New("no pending location to add")
)

const (
	DefaultHighlightTTL = 3 * time.Second
	DefaultNoticeTTL    = 5 * time.Second
)

// Options tune the orchestrator. Zero values fall back to defaults.
type Options struct {
	PageSize         int
	PendingTTL       time.Duration
	HighlightTTL     time.Duration
	NoticeTTL        time.Duration
	AutoApplyFilters bool
	// ReadOnly is the feed presentation: browsing only.
	ReadOnly    bool
	InitialView ViewState
	InitialMode models.ViewMode
}

// Deps are the collaborators the orchestrator is built from.
type Deps struct {
	Points       PointAPI
	Interactions InteractionAPI
	Session      Session
	AddressBar   AddressBar
	Location     LocationSource
	Dispatcher   Dispatcher
	// OnChange runs on the loop after every handled event or completion.
	OnChange func()
}

// Orchestrator composes the map experience components.
type Orchestrator struct {
	opts Options
	deps Deps

	mode    models.ViewMode
	mounted bool

	camera       *Camera
	filters      *FilterSet
	store        *PointStore
	pending      *PendingPointGesture
	selection    *SelectionController
	gateway      *PersistenceGateway
	tracker      *LocationTracker
	url          *URLSync
	interactions *InteractionsPanel
	confirm      Confirmer
	notices      noticeBoard

	highlight     string
	highlightTask Task
}

func New(deps Deps, opts Options) *Orchestrator {
	if opts.HighlightTTL <= 0 {
		opts.HighlightTTL = DefaultHighlightTTL
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}

	o := &Orchestrator{
		opts:   opts,
		deps:   deps,
		mode:   opts.InitialMode,
		camera: NewCamera(opts.InitialView),
		url:    NewURLSync(deps.AddressBar),
	}
	o.notices = noticeBoard{disp: deps.Dispatcher, ttl: opts.NoticeTTL, onExpire: o.changed}
	o.filters = NewFilterSet(opts.AutoApplyFilters, o.filtersChanged)
	o.store = NewPointStore(deps.Points, deps.Dispatcher, deps.Session, opts.PageSize, o.pointsLoaded)
	o.pending = NewPendingPointGesture(deps.Dispatcher, opts.PendingTTL, o.changed)
	o.selection = NewSelectionController(o.selectionChanged)
	o.tracker = NewLocationTracker(deps.Location, deps.Dispatcher, o.fixReceived)
	o.interactions = NewInteractionsPanel(deps.Interactions, deps.Dispatcher, deps.Session, o.changed)
	o.gateway = NewPersistenceGateway(deps.Points, deps.Dispatcher, deps.Session, o.store, o.selection, gatewayHooks{
		beforeInsert: o.revealCreated,
		created:      o.pointCreated,
		updated:      func(models.Point) { o.changed() },
		deleted:      o.pointDeleted,
		failed:       o.writeFailed,
	})
	return o
}

// Mount seeds filters and selection from the address bar, loads the first
// page, and starts location tracking.
func (o *Orchestrator) Mount(ctx context.Context) {
	if o.mounted {
		return
	}
	o.mounted = true
	o.filters.Seed(o.url.Seed())
	o.store.Fetch(o.filters.Active(), o.mode)
	o.tracker.Start(ctx)
	logger.Info("Map experience mounted in %s mode with tags %v", o.mode, o.filters.Active())
	o.changed()
}

// Unmount cancels every timer and subscription and drops in-flight results.
func (o *Orchestrator) Unmount() {
	if !o.mounted {
		return
	}
	o.mounted = false
	o.pending.Clear()
	o.tracker.Stop()
	o.store.Invalidate()
	o.interactions.Close()
	o.confirm.Cancel()
	o.clearHighlight()
	o.notices.clear()
	logger.Info("Map experience unmounted")
}

func (o *Orchestrator) Mode() models.ViewMode { return o.mode }

// MapTapped offers "Add Point Here" at c when nothing is selected.
func (o *Orchestrator) MapTapped(c models.Coordinate) error {
	if o.opts.ReadOnly {
		return ErrReadOnly
	}
	if o.mode != models.MapView || o.selection.Current().Kind() != KindIdle {
		return ErrInvalidTransition
	}
	if !geo.ValidCoordinate(c) {
		return errors.Validation(map[string]string{string(models.FieldLatitude): "Coordinates are out of range"})
	}
	o.pending.Place(c)
	o.changed()
	return nil
}

// AddPointHere promotes the pending location to a new draft.
func (o *Orchestrator) AddPointHere() error {
	if o.opts.ReadOnly {
		return ErrReadOnly
	}
	c, ok := o.pending.Promote()
	if !ok {
		return ErrNoPendingLocation
	}
	err := o.selection.StartDraft(c)
	o.changed()
	return err
}

// SelectPoint views the held point with id, from a marker or a list row.
func (o *Orchestrator) SelectPoint(id string) error {
	p, ok := o.store.Find(id)
	if !ok {
		return errors.NotFound("point " + id)
	}
	if err := o.selection.TapMarker(p); err != nil {
		logger.Debug("Ignoring tap on %s while %s", id, o.selection.Current().Kind())
		return err
	}
	o.changed()
	return nil
}

func (o *Orchestrator) MoveViewport(v ViewState) {
	o.camera.Move(v)
	o.changed()
}

// RecenterOnUser flies to the latest fix, if there is one.
func (o *Orchestrator) RecenterOnUser() bool {
	fix, ok := o.tracker.Location()
	if !ok {
		return false
	}
	o.camera.FlyTo(fix.Position())
	o.changed()
	return true
}

func (o *Orchestrator) ToggleTag(t models.Tag) error { return o.filters.Toggle(t) }

func (o *Orchestrator) StageTag(t models.Tag) error {
	err := o.filters.Stage(t)
	if err == nil && !o.opts.AutoApplyFilters {
		o.changed()
	}
	return err
}

func (o *Orchestrator) OpenFilterMenu() {
	o.filters.OpenMenu()
	o.changed()
}

func (o *Orchestrator) CloseFilterMenu() {
	o.filters.CloseMenu()
	o.changed()
}

func (o *Orchestrator) ApplyFilters() { o.filters.Apply() }

func (o *Orchestrator) ResetFilters() { o.filters.Reset() }

func (o *Orchestrator) filtersChanged() {
	o.store.Fetch(o.filters.Active(), o.mode)
	o.changed()
}

// SetMode switches between map and list. The selection survives; the
// pending location does not.
func (o *Orchestrator) SetMode(m models.ViewMode) {
	if m == o.mode {
		return
	}
	o.mode = m
	o.pending.Clear()
	o.store.Fetch(o.filters.Active(), m)
	logger.Debug("View mode switched to %s", m)
	o.changed()
}

func (o *Orchestrator) ToggleMode() {
	if o.mode == models.MapView {
		o.SetMode(models.ListView)
		return
	}
	o.SetMode(models.MapView)
}

// LoadMore requests the next list page when the user nears the bottom.
func (o *Orchestrator) LoadMore() bool {
	ok := o.store.LoadMore()
	if ok {
		o.changed()
	}
	return ok
}

// Retry repeats the last failed page request.
func (o *Orchestrator) Retry() bool {
	ok := o.store.Retry()
	if ok {
		o.changed()
	}
	return ok
}

// Refresh reloads the first page. Points created this session stay listed
// even when the response does not include them yet.
func (o *Orchestrator) Refresh() {
	o.store.Refresh()
	o.changed()
}

// SessionChanged is called after a login, logout or account switch. Points,
// selection and dialogs of the previous account are dropped at once and the
// first page is fetched for the current one.
func (o *Orchestrator) SessionChanged() {
	if !o.mounted {
		return
	}
	o.confirm.Cancel()
	o.pending.Clear()
	if o.selection.Current().Kind() != KindIdle {
		o.selection.Close()
	}
	o.clearHighlight()
	o.store.Clear()
	o.store.Fetch(o.filters.Active(), o.mode)
	logger.Info("Session changed, reloading points")
	o.changed()
}

// EditDraft sets a field of the draft being created.
func (o *Orchestrator) EditDraft(f models.Field, v any) error {
	err := o.selection.Dispatch(CreateDraftEdited{Field: f, Value: v})
	o.changed()
	return err
}

// EditPoint sets a field of the edit form.
func (o *Orchestrator) EditPoint(f models.Field, v any) error {
	err := o.selection.Dispatch(ExistingPointEdited{Field: f, Value: v})
	o.changed()
	return err
}

func (o *Orchestrator) SubmitDraft() error {
	if o.opts.ReadOnly {
		return ErrReadOnly
	}
	err := o.gateway.Create()
	o.changed()
	return err
}

func (o *Orchestrator) BeginEdit() error {
	if o.opts.ReadOnly {
		return ErrReadOnly
	}
	err := o.selection.BeginEdit()
	o.changed()
	return err
}

func (o *Orchestrator) SubmitEdit() error {
	if o.opts.ReadOnly {
		return ErrReadOnly
	}
	err := o.gateway.Update()
	o.changed()
	return err
}

func (o *Orchestrator) CancelEdit() error {
	err := o.selection.CancelEdit()
	o.changed()
	return err
}

// RequestDelete asks for confirmation before deleting the selected point.
func (o *Orchestrator) RequestDelete() error {
	if o.opts.ReadOnly {
		return ErrReadOnly
	}
	p, ok := SelectedPoint(o.selection.Current())
	if !ok {
		return ErrInvalidTransition
	}
	if o.gateway.Deleting(p.ID) {
		return nil
	}
	o.confirm.Ask(DeletePointDialog(), func() {
		if err := o.gateway.Delete(p); err != nil {
			o.writeFailed("delete", err)
		}
	})
	o.changed()
	return nil
}

// Close dismisses the open panel. Closing a draft asks for confirmation.
func (o *Orchestrator) Close() {
	switch o.selection.Current().Kind() {
	case KindIdle:
		o.pending.Clear()
	case KindDrafting:
		o.confirm.Ask(DiscardPointDialog(), func() {
			if o.selection.Current().Kind() == KindDrafting {
				o.selection.Close()
			}
		})
	default:
		o.selection.Close()
	}
	o.changed()
}

// Confirm runs the action behind the open dialog.
func (o *Orchestrator) Confirm() bool {
	ok := o.confirm.Confirm()
	o.changed()
	return ok
}

func (o *Orchestrator) CancelDialog() bool {
	ok := o.confirm.Cancel()
	o.changed()
	return ok
}

func (o *Orchestrator) React() error {
	err := o.interactions.React()
	o.changed()
	return err
}

func (o *Orchestrator) Comment(text string) error {
	err := o.interactions.Comment(text)
	o.changed()
	return err
}

func (o *Orchestrator) DismissNotice(id int) bool {
	ok := o.notices.dismiss(id)
	o.changed()
	return ok
}

func (o *Orchestrator) selectionChanged(prev, next Selection) {
	o.pending.Clear()
	// An open dialog is bound to the selection it was raised for.
	if !sameSubject(prev, next) && o.confirm.Cancel() {
		logger.Debug("Selection moved to %s, dialog dismissed", next.Kind())
	}
	switch v := next.(type) {
	case Viewing:
		if v.Point.ID != o.interactions.PointID() {
			o.interactions.Open(v.Point.ID)
		}
	case Editing:
	default:
		o.interactions.Close()
	}
}

func sameSubject(a, b Selection) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	pa, _ := SelectedPoint(a)
	pb, _ := SelectedPoint(b)
	return pa.ID == pb.ID
}

func (o *Orchestrator) pointsLoaded(err error) {
	if err != nil {
		o.notices.push(NoticeError, "Could not load points. Showing the last results.")
		o.changed()
		return
	}
	if o.url.PendingID() != "" {
		if p, ok := o.url.Resolve(o.store.Points()); ok && o.selection.Current().Kind() != KindDrafting {
			_ = o.selection.TapMarker(p)
			o.camera.FlyTo(p.Position())
		}
	}
	o.changed()
}

func (o *Orchestrator) fixReceived(fix models.Fix) {
	o.camera.FollowFix(fix)
	o.changed()
}

// revealCreated clears filters that would hide the new point.
func (o *Orchestrator) revealCreated(p models.Point) {
	if !o.filters.Allows(p.Tag) {
		o.filters.Reset()
	}
}

func (o *Orchestrator) pointCreated(p models.Point) {
	o.camera.FlyTo(p.Position())
	o.setHighlight(p.ID)
	o.notices.push(NoticeInfo, "Point created.")
	o.changed()
}

func (o *Orchestrator) pointDeleted(id string) {
	if o.highlight == id {
		o.clearHighlight()
	}
	o.notices.push(NoticeInfo, "Point deleted.")
	o.changed()
}

func (o *Orchestrator) writeFailed(op string, err error) {
	o.notices.push(NoticeError, failureText(op, err))
	o.changed()
}

func failureText(op string, err error) string {
	switch {
	case errors.Is(err, errors.ErrValidation):
		return "Please fix the highlighted fields."
	case errors.Is(err, errors.ErrNotFound):
		return "This point no longer exists."
	case errors.Is(err, errors.ErrUnauthorized):
		return "Your session has expired. Please log in again."
	default:
		return "Could not " + op + " point. Please try again."
	}
}

func (o *Orchestrator) setHighlight(id string) {
	o.clearHighlight()
	o.highlight = id
	var task Task
	task = o.deps.Dispatcher.AfterFunc(o.opts.HighlightTTL, func() {
		if o.highlightTask != task {
			return
		}
		o.highlight = ""
		o.highlightTask = nil
		o.changed()
	})
	o.highlightTask = task
}

func (o *Orchestrator) clearHighlight() {
	if o.highlightTask != nil {
		o.highlightTask.Cancel()
		o.highlightTask = nil
	}
	o.highlight = ""
}

// changed syncs the address bar and notifies the renderer.
func (o *Orchestrator) changed() {
	if !o.mounted {
		return
	}
	o.url.Sync(o.filters.Active(), o.addressPointID())
	if o.deps.OnChange != nil {
		o.deps.OnChange()
	}
}

// addressPointID is the poi_id to publish. List mode never publishes one.
func (o *Orchestrator) addressPointID() string {
	if o.mode != models.MapView {
		return ""
	}
	if p, ok := SelectedPoint(o.selection.Current()); ok {
		return p.ID
	}
	return o.url.PendingID()
}
