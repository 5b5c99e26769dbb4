package experience

import (
	"testing"

	"mapquester/models"
)

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		tags []models.Tag
		id   string
		want string
	}{
		{nil, "", ""},
		{[]models.Tag{models.TagFood, models.TagMusic}, "", "tag=food&tag=music"},
		{[]models.Tag{models.TagFood, models.TagMusic}, "42", "tag=food&tag=music&poi_id=42"},
		{nil, "a b", "poi_id=a+b"},
	}
	for _, tt := range tests {
		if got := EncodeQuery(tt.tags, tt.id); got != tt.want {
			t.Errorf("EncodeQuery(%v, %q) = %q, want %q", tt.tags, tt.id, got, tt.want)
		}
	}
}

func TestURLSync_SeedAndResolve(t *testing.T) {
	bar := &memoryBar{query: "tag=food&tag=bogus&tag=music&poi_id=42"}
	u := NewURLSync(bar)

	tags := u.Seed()
	if len(tags) != 2 || tags[0] != models.TagFood || tags[1] != models.TagMusic {
		t.Errorf("expected [food music], got %v", tags)
	}
	if u.PendingID() != "42" {
		t.Fatalf("expected pending id 42, got %q", u.PendingID())
	}

	if _, ok := u.Resolve([]models.Point{point("7", models.TagFood)}); ok {
		t.Error("expected an absent id to be ignored")
	}
	if u.PendingID() != "" {
		t.Error("expected the pending id to be dropped after resolution")
	}
}

func TestURLSync_WritesOnlyOnChange(t *testing.T) {
	bar := &memoryBar{query: "tag=food"}
	u := NewURLSync(bar)

	if u.Sync([]models.Tag{models.TagFood}, "") {
		t.Error("expected unchanged state not to touch the address bar")
	}
	if !u.Sync([]models.Tag{models.TagFood}, "3") {
		t.Error("expected a new selection to be written")
	}
	u.Sync([]models.Tag{models.TagFood}, "3")
	if bar.replaces != 1 {
		t.Errorf("expected exactly one replace, got %d", bar.replaces)
	}
}
