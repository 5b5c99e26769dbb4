package experience

import (
	"testing"

	"mapquester/models"
	"mapquester/utils/errors"
)

func TestReduce_DraftEdits(t *testing.T) {
	start := Drafting{
		Draft:       models.NewDraft(models.Coordinate{Latitude: 1, Longitude: 2}),
		FieldErrors: map[models.Field]string{models.FieldTitle: "Title is required"},
	}

	tests := []struct {
		name  string
		field models.Field
		value any
		check func(models.Draft) bool
	}{
		{"title", models.FieldTitle, "Cafe X", func(d models.Draft) bool { return d.Title == "Cafe X" }},
		{"tag string", models.FieldTag, "Food", func(d models.Draft) bool { return d.Tag == models.TagFood }},
		{"latitude string", models.FieldLatitude, "40.70", func(d models.Draft) bool { return d.Position.Latitude == 40.70 }},
		{"private", models.FieldIsPublic, false, func(d models.Draft) bool { return !d.IsPublic }},
		{"attachment", models.FieldContent, models.Attachment{Filename: "a.png", ContentType: "image/png"}, func(d models.Draft) bool { return len(d.Content) == 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Reduce(start, CreateDraftEdited{Field: tt.field, Value: tt.value})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			d, ok := next.(Drafting)
			if !ok {
				t.Fatalf("expected Drafting, got %T", next)
			}
			if !tt.check(d.Draft) {
				t.Errorf("field %s not applied: %+v", tt.field, d.Draft)
			}
		})
	}

	if start.Draft.Position.Latitude != 1 {
		t.Error("expected Reduce to leave the input selection untouched")
	}
}

func TestReduce_ClearsFieldError(t *testing.T) {
	start := Drafting{
		Draft:       models.NewDraft(models.Coordinate{}),
		FieldErrors: map[models.Field]string{models.FieldTitle: "Title is required", models.FieldTag: "Tag is required"},
	}
	next, err := Reduce(start, CreateDraftEdited{Field: models.FieldTitle, Value: "x"})
	if err != nil {
		t.Fatal(err)
	}
	errs := next.(Drafting).FieldErrors
	if _, ok := errs[models.FieldTitle]; ok {
		t.Error("expected title error cleared")
	}
	if _, ok := errs[models.FieldTag]; !ok {
		t.Error("expected tag error kept")
	}
}

func TestReduce_WrongVariant(t *testing.T) {
	viewing := Viewing{Point: point("1", models.TagFood)}
	if _, err := Reduce(viewing, CreateDraftEdited{Field: models.FieldTitle, Value: "x"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for a draft edit while viewing, got %v", err)
	}
	drafting := Drafting{Draft: models.NewDraft(models.Coordinate{})}
	if _, err := Reduce(drafting, ExistingPointEdited{Field: models.FieldTitle, Value: "x"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for a point edit while drafting, got %v", err)
	}
	if _, err := Reduce(Idle{}, ExistingPointEdited{Field: models.FieldTitle, Value: "x"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition while idle, got %v", err)
	}
}

func TestReduce_InvalidValue(t *testing.T) {
	editing := Editing{Point: point("1", models.TagFood), Form: models.PatchFrom(point("1", models.TagFood))}
	next, err := Reduce(editing, ExistingPointEdited{Field: models.FieldTag, Value: "pizza"})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if next.(Editing).Form.Tag != models.TagFood {
		t.Error("expected form unchanged after a rejected edit")
	}
	if _, err := Reduce(editing, ExistingPointEdited{Field: models.FieldIsPublic, Value: true}); err == nil {
		t.Error("expected isPublic to be rejected on the edit form")
	}
}

func TestSelectionController_Transitions(t *testing.T) {
	var transitions []SelectionKind
	c := NewSelectionController(func(_, next Selection) { transitions = append(transitions, next.Kind()) })

	if err := c.BeginEdit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected edit from Idle to be refused, got %v", err)
	}
	if err := c.TapMarker(point("1", models.TagFood)); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	if err := c.TapMarker(point("2", models.TagFood)); err != nil {
		t.Fatal(err)
	}
	v, ok := c.Current().(Viewing)
	if !ok || v.Point.ID != "2" {
		t.Fatalf("expected direct switch to Viewing(2), got %#v", c.Current())
	}
	if err := c.StartDraft(models.Coordinate{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected draft start outside Idle to be refused, got %v", err)
	}
	c.Close()
	if err := c.StartDraft(models.Coordinate{Latitude: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.TapMarker(point("3", models.TagFood)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected marker tap while drafting to be refused, got %v", err)
	}

	want := []SelectionKind{KindViewing, KindEditing, KindViewing, KindIdle, KindDrafting}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestBuildPanel_OnePanelPerVariant(t *testing.T) {
	p := point("7", models.TagMusic)
	cases := []struct {
		sel  Selection
		want PanelKind
	}{
		{Idle{}, PanelNone},
		{Drafting{Draft: models.NewDraft(models.Coordinate{})}, PanelDraftForm},
		{Viewing{Point: p}, PanelPointDetail},
		{Editing{Point: p, Form: models.PatchFrom(p)}, PanelEditForm},
	}
	for _, c := range cases {
		got := BuildPanel(c.sel)
		if got.Kind != c.want {
			t.Errorf("%s: expected panel %s, got %s", c.sel.Kind(), c.want, got.Kind)
		}
		again := BuildPanel(c.sel)
		if again.Kind != got.Kind || again.Title != got.Title || len(again.Fields) != len(got.Fields) {
			t.Errorf("%s: expected the panel to be a pure function of the selection", c.sel.Kind())
		}
	}
}
