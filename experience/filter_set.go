package experience

import (
	"fmt"

	"mapquester/models"
	"mapquester/utils/errors"
)

// FilterSet holds the applied tag filter, the staged menu selection, and
// whether the filter menu is open. An empty active set means no filtering.
type FilterSet struct {
	active    map[models.Tag]bool
	staged    map[models.Tag]bool
	menuOpen  bool
	autoApply bool

	// onChange runs after every mutation of the active set.
	onChange func()
}

// NewFilterSet creates an empty filter. With autoApply, staging a tag commits
// it immediately.
func NewFilterSet(autoApply bool, onChange func()) *FilterSet {
	return &FilterSet{
		active:    map[models.Tag]bool{},
		staged:    map[models.Tag]bool{},
		autoApply: autoApply,
		onChange:  onChange,
	}
}

func checkTag(t models.Tag) error {
	if !t.Valid() {
		return errors.Validation(map[string]string{string(models.FieldTag): fmt.Sprintf("unknown tag %q", t)})
	}
	return nil
}

// Active returns the applied tags in canonical order.
func (f *FilterSet) Active() []models.Tag { return ordered(f.active) }

// Staged returns the menu selection in canonical order.
func (f *FilterSet) Staged() []models.Tag { return ordered(f.staged) }

func (f *FilterSet) MenuOpen() bool { return f.menuOpen }

func (f *FilterSet) IsEmpty() bool { return len(f.active) == 0 }

// Allows reports whether a point tagged t passes the active filter.
func (f *FilterSet) Allows(t models.Tag) bool {
	return len(f.active) == 0 || f.active[t]
}

// OpenMenu shows the menu with the staged selection mirroring the active one.
func (f *FilterSet) OpenMenu() {
	f.staged = clone(f.active)
	f.menuOpen = true
}

// CloseMenu discards staged changes.
func (f *FilterSet) CloseMenu() {
	f.staged = clone(f.active)
	f.menuOpen = false
}

// Toggle flips t in both the staged and the active set.
func (f *FilterSet) Toggle(t models.Tag) error {
	if err := checkTag(t); err != nil {
		return err
	}
	flip(f.active, t)
	f.staged = clone(f.active)
	f.changed()
	return nil
}

// Stage flips t in the menu selection only, unless auto-apply is on.
func (f *FilterSet) Stage(t models.Tag) error {
	if err := checkTag(t); err != nil {
		return err
	}
	flip(f.staged, t)
	if f.autoApply {
		f.active = clone(f.staged)
		f.changed()
	}
	return nil
}

// Apply commits the staged selection and closes the menu.
func (f *FilterSet) Apply() {
	f.active = clone(f.staged)
	f.menuOpen = false
	f.changed()
}

// Reset clears both staged and active selections.
func (f *FilterSet) Reset() {
	f.active = map[models.Tag]bool{}
	f.staged = map[models.Tag]bool{}
	f.changed()
}

// Seed sets the active set without firing onChange. Invalid tags are skipped.
func (f *FilterSet) Seed(tags []models.Tag) {
	f.active = map[models.Tag]bool{}
	for _, t := range tags {
		if t.Valid() {
			f.active[t] = true
		}
	}
	f.staged = clone(f.active)
}

func (f *FilterSet) changed() {
	if f.onChange != nil {
		f.onChange()
	}
}

func flip(set map[models.Tag]bool, t models.Tag) {
	if set[t] {
		delete(set, t)
		return
	}
	set[t] = true
}

func clone(set map[models.Tag]bool) map[models.Tag]bool {
	out := make(map[models.Tag]bool, len(set))
	for t := range set {
		out[t] = true
	}
	return out
}

func ordered(set map[models.Tag]bool) []models.Tag {
	var out []models.Tag
	for _, t := range models.AllTags {
		if set[t] {
			out = append(out, t)
		}
	}
	return out
}
