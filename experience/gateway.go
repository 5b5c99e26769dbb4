package experience

import (
	"context"
	"strings"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/geo"
	"mapquester/utils/logger"
)

// gatewayHooks let the orchestrator react to confirmed writes.
type gatewayHooks struct {
	// beforeInsert runs on create success before the store gains the point.
	beforeInsert func(models.Point)
	created      func(models.Point)
	updated      func(models.Point)
	deleted      func(id string)
	failed       func(op string, err error)
}

// PersistenceGateway performs create, update and delete against the backend
// and patches PointStore only after the server confirms.
type PersistenceGateway struct {
	api       PointAPI
	disp      Dispatcher
	session   Session
	store     *PointStore
	selection *SelectionController
	hooks     gatewayHooks

	deleting map[string]bool
}

func NewPersistenceGateway(api PointAPI, disp Dispatcher, session Session, store *PointStore, selection *SelectionController, hooks gatewayHooks) *PersistenceGateway {
	return &PersistenceGateway{
		api:       api,
		disp:      disp,
		session:   session,
		store:     store,
		selection: selection,
		hooks:     hooks,
		deleting:  map[string]bool{},
	}
}

// ValidateDraft returns one message per missing or invalid required field.
func ValidateDraft(d models.Draft) map[models.Field]string {
	errs := map[models.Field]string{}
	if strings.TrimSpace(d.Title) == "" {
		errs[models.FieldTitle] = "Title is required"
	}
	if strings.TrimSpace(d.Description) == "" {
		errs[models.FieldDescription] = "Description is required"
	}
	if !d.Tag.Valid() {
		errs[models.FieldTag] = "Tag is required"
	}
	if d.Position == nil {
		errs[models.FieldLatitude] = "Coordinates are required"
		errs[models.FieldLongitude] = "Coordinates are required"
	} else if !geo.ValidCoordinate(*d.Position) {
		errs[models.FieldLatitude] = "Coordinates are out of range"
		errs[models.FieldLongitude] = "Coordinates are out of range"
	}
	for _, a := range d.Content {
		if _, err := models.NewAttachment(a.Filename, a.ContentType, nil); err != nil {
			errs[models.FieldContent] = err.Error()
			break
		}
	}
	return errs
}

// ValidatePatch checks an edit form the same way as a draft.
func ValidatePatch(p models.PointPatch) map[models.Field]string {
	pos := models.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
	return ValidateDraft(models.Draft{
		Title:       p.Title,
		Description: p.Description,
		Tag:         p.Tag,
		Position:    &pos,
	})
}

func validationError(fields map[models.Field]string) error {
	out := make(map[string]string, len(fields))
	for f, msg := range fields {
		out[string(f)] = msg
	}
	return errors.Validation(out)
}

func (g *PersistenceGateway) userID() string {
	if g.session == nil {
		return ""
	}
	return g.session.UserID()
}

// Create submits the current draft. Missing fields are reported before any
// network call; the draft is kept on every failure.
func (g *PersistenceGateway) Create() error {
	d, ok := g.selection.Current().(Drafting)
	if !ok || d.Submitting {
		return ErrInvalidTransition
	}
	if fields := ValidateDraft(d.Draft); len(fields) > 0 {
		d.FieldErrors = fields
		g.selection.replace(d)
		return validationError(fields)
	}

	d.FieldErrors = nil
	d.Submitting = true
	g.selection.replace(d)

	draft := d.Draft
	userID := g.userID()
	g.disp.Go(func(ctx context.Context) func() {
		created, err := g.api.CreatePoint(ctx, userID, draft)
		return func() { g.createDone(created, err) }
	})
	return nil
}

func (g *PersistenceGateway) createDone(p models.Point, err error) {
	cur, drafting := g.selection.Current().(Drafting)
	if err != nil {
		logger.Error("Gateway: create failed: %v", err)
		if drafting {
			cur.Submitting = false
			cur.FieldErrors = serverFieldErrors(err)
			g.selection.replace(cur)
		}
		g.fail("create", err)
		return
	}

	logger.Info("Gateway: created point %s", p.ID)
	if g.hooks.beforeInsert != nil {
		g.hooks.beforeInsert(p)
	}
	g.store.Insert(p)
	if drafting && cur.Submitting {
		g.selection.set(Viewing{Point: p})
	}
	if g.hooks.created != nil {
		g.hooks.created(p)
	}
}

// Update submits the edit form. The store and selection change only after
// the server confirms.
func (g *PersistenceGateway) Update() error {
	e, ok := g.selection.Current().(Editing)
	if !ok || e.Submitting {
		return ErrInvalidTransition
	}
	if fields := ValidatePatch(e.Form); len(fields) > 0 {
		e.FieldErrors = fields
		g.selection.replace(e)
		return validationError(fields)
	}

	e.FieldErrors = nil
	e.Submitting = true
	g.selection.replace(e)

	current, patch := e.Point, e.Form
	g.disp.Go(func(ctx context.Context) func() {
		updated, err := g.api.UpdatePoint(ctx, current, patch)
		return func() { g.updateDone(current.ID, updated, err) }
	})
	return nil
}

func (g *PersistenceGateway) updateDone(id string, p models.Point, err error) {
	cur, editing := g.selection.Current().(Editing)
	editing = editing && cur.Point.ID == id

	if err != nil {
		logger.Error("Gateway: update %s failed: %v", id, err)
		if errors.Is(err, errors.ErrNotFound) {
			g.store.Remove(id)
			if editing {
				g.selection.Close()
			}
		} else if editing {
			cur.Submitting = false
			cur.FieldErrors = serverFieldErrors(err)
			g.selection.replace(cur)
		}
		g.fail("update", err)
		return
	}

	if p.ID == "" {
		p.ID = id
	}
	if !g.store.Replace(p) {
		logger.Debug("Gateway: updated point %s is no longer held", id)
	}
	if editing {
		g.selection.set(Viewing{Point: p})
	}
	if g.hooks.updated != nil {
		g.hooks.updated(p)
	}
}

// Delete removes p on the server and then locally. It is only reached
// through a confirmation dialog.
func (g *PersistenceGateway) Delete(p models.Point) error {
	if p.ID == "" {
		return errors.NotFound("point has no id")
	}
	if g.deleting[p.ID] {
		return nil
	}
	g.deleting[p.ID] = true
	g.disp.Go(func(ctx context.Context) func() {
		err := g.api.DeletePoint(ctx, p.ID)
		return func() { g.deleteDone(p.ID, err) }
	})
	return nil
}

// Deleting reports whether a delete for id is in flight.
func (g *PersistenceGateway) Deleting(id string) bool {
	return g.deleting[id]
}

func (g *PersistenceGateway) deleteDone(id string, err error) {
	delete(g.deleting, id)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		logger.Error("Gateway: delete %s failed: %v", id, err)
		g.fail("delete", err)
		return
	}
	if err != nil {
		logger.Info("Gateway: point %s was already gone on the server", id)
	}
	g.ApplyDeleted(id)
}

// ApplyDeleted removes id from the store and drops a selection of it. An id
// that is no longer held is ignored.
func (g *PersistenceGateway) ApplyDeleted(id string) {
	g.store.Remove(id)
	if sel, ok := SelectedPoint(g.selection.Current()); ok && sel.ID == id {
		g.selection.Close()
	}
	if g.hooks.deleted != nil {
		g.hooks.deleted(id)
	}
}

func (g *PersistenceGateway) fail(op string, err error) {
	if g.hooks.failed != nil {
		g.hooks.failed(op, err)
	}
}

func serverFieldErrors(err error) map[models.Field]string {
	fields := errors.FieldErrors(err)
	if len(fields) == 0 {
		return nil
	}
	out := make(map[models.Field]string, len(fields))
	for k, v := range fields {
		out[models.Field(k)] = v
	}
	return out
}
