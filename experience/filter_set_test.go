package experience

import (
	"testing"

	"mapquester/models"
	"mapquester/utils/errors"
)

func TestFilterSet_ToggleCommitsImmediately(t *testing.T) {
	changes := 0
	f := NewFilterSet(false, func() { changes++ })

	if err := f.Toggle(models.TagMusic); err != nil {
		t.Fatal(err)
	}
	if err := f.Toggle(models.TagFood); err != nil {
		t.Fatal(err)
	}
	got := f.Active()
	if len(got) != 2 || got[0] != models.TagFood || got[1] != models.TagMusic {
		t.Errorf("expected canonical order [food music], got %v", got)
	}
	if err := f.Toggle(models.TagFood); err != nil {
		t.Fatal(err)
	}
	if f.Allows(models.TagFood) || !f.Allows(models.TagMusic) {
		t.Error("expected food filtered out and music allowed")
	}
	if changes != 3 {
		t.Errorf("expected 3 change notifications, got %d", changes)
	}
}

func TestFilterSet_StageThenApply(t *testing.T) {
	changes := 0
	f := NewFilterSet(false, func() { changes++ })

	f.OpenMenu()
	_ = f.Stage(models.TagSchool)
	_ = f.Stage(models.TagPhoto)
	if !f.IsEmpty() || changes != 0 {
		t.Fatal("expected staging to leave the active set alone")
	}
	f.Apply()
	if f.MenuOpen() {
		t.Error("expected Apply to close the menu")
	}
	if len(f.Active()) != 2 || changes != 1 {
		t.Errorf("expected 2 active tags and one change, got %v and %d", f.Active(), changes)
	}

	f.OpenMenu()
	_ = f.Stage(models.TagEvent)
	f.CloseMenu()
	if len(f.Staged()) != 2 {
		t.Errorf("expected closing the menu to drop staged changes, got %v", f.Staged())
	}

	f.Reset()
	if !f.IsEmpty() || len(f.Staged()) != 0 || changes != 2 {
		t.Errorf("expected reset to clear both sets, got active %v staged %v", f.Active(), f.Staged())
	}
	if !f.Allows(models.TagEvent) {
		t.Error("expected an empty filter to allow every tag")
	}
}

func TestFilterSet_AutoApply(t *testing.T) {
	changes := 0
	f := NewFilterSet(true, func() { changes++ })
	_ = f.Stage(models.TagFood)
	if !f.Allows(models.TagFood) || f.Allows(models.TagMusic) || changes != 1 {
		t.Errorf("expected staging to commit with auto-apply, got %v (%d changes)", f.Active(), changes)
	}
}

func TestFilterSet_UnknownTag(t *testing.T) {
	f := NewFilterSet(false, nil)
	if err := f.Toggle(models.Tag("pizza")); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	f.Seed([]models.Tag{"pizza", models.TagEvent})
	if got := f.Active(); len(got) != 1 || got[0] != models.TagEvent {
		t.Errorf("expected seed to skip unknown tags, got %v", got)
	}
}
