package experience

import (
	"fmt"
	"strconv"
	"strings"

	"mapquester/models"
	"mapquester/utils/errors"
)

// ErrInvalidTransition is returned for a command the current selection
// variant does not accept.
var ErrInvalidTransition = errors.New("invalid selection transition")

// SelectionKind names a Selection variant.
type SelectionKind int

const (
	KindIdle SelectionKind = iota
	KindDrafting
	KindViewing
	KindEditing
)

func (k SelectionKind) String() string {
	switch k {
	case KindDrafting:
		return "drafting"
	case KindViewing:
		return "viewing"
	case KindEditing:
		return "editing"
	default:
		return "idle"
	}
}

// Selection is exactly one of Idle, Drafting, Viewing or Editing.
type Selection interface {
	Kind() SelectionKind
	isSelection()
}

type Idle struct{}

// Drafting holds an unsaved point anchored where the user tapped.
type Drafting struct {
	Draft       models.Draft
	Anchor      models.Coordinate
	FieldErrors map[models.Field]string
	Submitting  bool
}

type Viewing struct {
	Point models.Point
}

// Editing holds the point as last confirmed by the server and the edit form.
type Editing struct {
	Point       models.Point
	Form        models.PointPatch
	FieldErrors map[models.Field]string
	Submitting  bool
}

func (Idle) Kind() SelectionKind     { return KindIdle }
func (Drafting) Kind() SelectionKind { return KindDrafting }
func (Viewing) Kind() SelectionKind  { return KindViewing }
func (Editing) Kind() SelectionKind  { return KindEditing }

func (Idle) isSelection()     {}
func (Drafting) isSelection() {}
func (Viewing) isSelection()  {}
func (Editing) isSelection()  {}

// SelectedPoint returns the persisted point behind a Viewing or Editing
// selection.
func SelectedPoint(s Selection) (models.Point, bool) {
	switch v := s.(type) {
	case Viewing:
		return v.Point, true
	case Editing:
		return v.Point, true
	}
	return models.Point{}, false
}

// Command is a form edit reduced against the current selection.
type Command interface {
	isCommand()
}

// CreateDraftEdited sets one field of the draft being created.
type CreateDraftEdited struct {
	Field models.Field
	Value any
}

// ExistingPointEdited sets one field of the edit form.
type ExistingPointEdited struct {
	Field models.Field
	Value any
}

func (CreateDraftEdited) isCommand()   {}
func (ExistingPointEdited) isCommand() {}

// Reduce applies cmd to s. It never mutates s.
func Reduce(s Selection, cmd Command) (Selection, error) {
	switch c := cmd.(type) {
	case CreateDraftEdited:
		d, ok := s.(Drafting)
		if !ok || d.Submitting {
			return s, ErrInvalidTransition
		}
		next := d
		next.Draft.Content = append([]models.Attachment(nil), d.Draft.Content...)
		if err := setDraftField(&next.Draft, c.Field, c.Value); err != nil {
			return s, err
		}
		next.FieldErrors = without(d.FieldErrors, c.Field)
		return next, nil
	case ExistingPointEdited:
		e, ok := s.(Editing)
		if !ok || e.Submitting {
			return s, ErrInvalidTransition
		}
		next := e
		if err := setPatchField(&next.Form, c.Field, c.Value); err != nil {
			return s, err
		}
		next.FieldErrors = without(e.FieldErrors, c.Field)
		return next, nil
	}
	return s, ErrInvalidTransition
}

func without(fields map[models.Field]string, f models.Field) map[models.Field]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[models.Field]string, len(fields))
	for k, v := range fields {
		if k != f {
			out[k] = v
		}
	}
	return out
}

func fieldError(f models.Field, format string, args ...any) error {
	return errors.Validation(map[string]string{string(f): fmt.Sprintf(format, args...)})
}

func setDraftField(d *models.Draft, f models.Field, v any) error {
	switch f {
	case models.FieldTitle:
		s, err := asString(f, v)
		d.Title = s
		return err
	case models.FieldDescription:
		s, err := asString(f, v)
		d.Description = s
		return err
	case models.FieldTag:
		t, err := asTag(v)
		if err == nil {
			d.Tag = t
		}
		return err
	case models.FieldLatitude, models.FieldLongitude:
		x, err := asFloat(f, v)
		if err != nil {
			return err
		}
		if d.Position == nil {
			d.Position = &models.Coordinate{}
		}
		pos := *d.Position
		if f == models.FieldLatitude {
			pos.Latitude = x
		} else {
			pos.Longitude = x
		}
		d.Position = &pos
		return nil
	case models.FieldIsPublic:
		b, err := asBool(f, v)
		if err == nil {
			d.IsPublic = b
		}
		return err
	case models.FieldContent:
		switch a := v.(type) {
		case models.Attachment:
			d.Content = append(d.Content, a)
		case []models.Attachment:
			d.Content = append([]models.Attachment(nil), a...)
		case nil:
			d.Content = nil
		default:
			return fieldError(f, "unsupported value %T", v)
		}
		return nil
	}
	return fieldError(f, "unknown field")
}

func setPatchField(p *models.PointPatch, f models.Field, v any) error {
	switch f {
	case models.FieldTitle:
		s, err := asString(f, v)
		p.Title = s
		return err
	case models.FieldDescription:
		s, err := asString(f, v)
		p.Description = s
		return err
	case models.FieldTag:
		t, err := asTag(v)
		if err == nil {
			p.Tag = t
		}
		return err
	case models.FieldLatitude:
		x, err := asFloat(f, v)
		if err == nil {
			p.Latitude = x
		}
		return err
	case models.FieldLongitude:
		x, err := asFloat(f, v)
		if err == nil {
			p.Longitude = x
		}
		return err
	}
	return fieldError(f, "field cannot be edited")
}

func asString(f models.Field, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", fieldError(f, "expected text, got %T", v)
}

func asTag(v any) (models.Tag, error) {
	var raw string
	switch t := v.(type) {
	case models.Tag:
		raw = string(t)
	case string:
		raw = t
	default:
		return "", fieldError(models.FieldTag, "expected a tag, got %T", v)
	}
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	tag, ok := models.ParseTag(raw)
	if !ok {
		return "", fieldError(models.FieldTag, "unknown tag %q", raw)
	}
	return tag, nil
}

func asFloat(f models.Field, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fieldError(f, "%q is not a number", x)
		}
		return n, nil
	}
	return 0, fieldError(f, "expected a number, got %T", v)
}

func asBool(f models.Field, v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fieldError(f, "%q is not true or false", b)
		}
		return parsed, nil
	}
	return false, fieldError(f, "expected true or false, got %T", v)
}

// SelectionController owns the current Selection.
type SelectionController struct {
	current Selection

	// onTransition runs whenever the variant changes.
	onTransition func(prev, next Selection)
}

func NewSelectionController(onTransition func(prev, next Selection)) *SelectionController {
	return &SelectionController{current: Idle{}, onTransition: onTransition}
}

func (c *SelectionController) Current() Selection { return c.current }

// Dispatch reduces a form edit command against the current selection.
func (c *SelectionController) Dispatch(cmd Command) error {
	next, err := Reduce(c.current, cmd)
	if err != nil {
		return err
	}
	c.current = next
	return nil
}

// TapMarker views p. Taps are refused while a draft is open.
func (c *SelectionController) TapMarker(p models.Point) error {
	if c.current.Kind() == KindDrafting {
		return ErrInvalidTransition
	}
	c.set(Viewing{Point: p})
	return nil
}

// StartDraft opens a draft at anchor. Only valid from Idle.
func (c *SelectionController) StartDraft(anchor models.Coordinate) error {
	if c.current.Kind() != KindIdle {
		return ErrInvalidTransition
	}
	c.set(Drafting{Draft: models.NewDraft(anchor), Anchor: anchor})
	return nil
}

// BeginEdit moves Viewing(p) to Editing(p) with the form seeded from p.
func (c *SelectionController) BeginEdit() error {
	v, ok := c.current.(Viewing)
	if !ok {
		return ErrInvalidTransition
	}
	c.set(Editing{Point: v.Point, Form: models.PatchFrom(v.Point)})
	return nil
}

// CancelEdit abandons the form and returns to viewing the unchanged point.
func (c *SelectionController) CancelEdit() error {
	e, ok := c.current.(Editing)
	if !ok || e.Submitting {
		return ErrInvalidTransition
	}
	c.set(Viewing{Point: e.Point})
	return nil
}

// Close returns to Idle from any variant.
func (c *SelectionController) Close() {
	c.set(Idle{})
}

// replace swaps the state within the same variant, e.g. to flag submission.
func (c *SelectionController) replace(s Selection) {
	c.current = s
}

func (c *SelectionController) set(next Selection) {
	prev := c.current
	c.current = next
	if c.onTransition != nil {
		c.onTransition(prev, next)
	}
}
