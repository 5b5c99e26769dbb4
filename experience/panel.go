package experience

import (
	"strconv"

	"mapquester/models"
)

// PanelKind identifies which side panel is rendered.
type PanelKind int

const (
	PanelNone PanelKind = iota
	PanelDraftForm
	PanelPointDetail
	PanelEditForm
)

func (k PanelKind) String() string {
	switch k {
	case PanelDraftForm:
		return "draft-form"
	case PanelPointDetail:
		return "point-detail"
	case PanelEditForm:
		return "edit-form"
	default:
		return "none"
	}
}

// PanelField is one labelled row of a form or detail panel.
type PanelField struct {
	Field models.Field
	Label string
	Value string
	Error string
}

// Panel is the single side panel derived from the selection.
type Panel struct {
	Kind       PanelKind
	Title      string
	Fields     []PanelField
	Actions    []string
	Submitting bool
	PointID    string
}

// BuildPanel derives the panel from s. It depends on nothing else.
func BuildPanel(s Selection) Panel {
	switch v := s.(type) {
	case Drafting:
		d := v.Draft
		lat, lon := "", ""
		if d.Position != nil {
			lat, lon = formatFloat(d.Position.Latitude), formatFloat(d.Position.Longitude)
		}
		return Panel{
			Kind:  PanelDraftForm,
			Title: "New Point",
			Fields: []PanelField{
				row(models.FieldTitle, "Title", d.Title, v.FieldErrors),
				row(models.FieldDescription, "Description", d.Description, v.FieldErrors),
				row(models.FieldTag, "Tag", d.Tag.Label(), v.FieldErrors),
				row(models.FieldLatitude, "Latitude", lat, v.FieldErrors),
				row(models.FieldLongitude, "Longitude", lon, v.FieldErrors),
				row(models.FieldIsPublic, "Public", strconv.FormatBool(d.IsPublic), v.FieldErrors),
				row(models.FieldContent, "Attachments", strconv.Itoa(len(d.Content)), v.FieldErrors),
			},
			Actions:    []string{"submit", "discard"},
			Submitting: v.Submitting,
		}
	case Viewing:
		p := v.Point
		return Panel{
			Kind:  PanelPointDetail,
			Title: p.Title,
			Fields: []PanelField{
				row(models.FieldDescription, "Description", p.Description, nil),
				row(models.FieldTag, "Tag", p.Tag.Label(), nil),
				row(models.FieldLatitude, "Latitude", formatFloat(p.Latitude), nil),
				row(models.FieldLongitude, "Longitude", formatFloat(p.Longitude), nil),
			},
			Actions: []string{"update", "delete", "close"},
			PointID: p.ID,
		}
	case Editing:
		f := v.Form
		return Panel{
			Kind:  PanelEditForm,
			Title: "Edit Point",
			Fields: []PanelField{
				row(models.FieldTitle, "Title", f.Title, v.FieldErrors),
				row(models.FieldDescription, "Description", f.Description, v.FieldErrors),
				row(models.FieldTag, "Tag", f.Tag.Label(), v.FieldErrors),
				row(models.FieldLatitude, "Latitude", formatFloat(f.Latitude), v.FieldErrors),
				row(models.FieldLongitude, "Longitude", formatFloat(f.Longitude), v.FieldErrors),
			},
			Actions:    []string{"save", "cancel"},
			Submitting: v.Submitting,
			PointID:    v.Point.ID,
		}
	}
	return Panel{Kind: PanelNone}
}

func row(f models.Field, label, value string, errs map[models.Field]string) PanelField {
	return PanelField{Field: f, Label: label, Value: value, Error: errs[f]}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
