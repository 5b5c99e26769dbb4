package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mapquester/models"
	"mapquester/utils/errors"
)

func ptr(f float64) *float64 { return &f }

func newPointService(t *testing.T) (*PointService, *MemoryUserRepository) {
	t.Helper()
	users := NewMemoryUserRepository()
	for _, u := range []models.User{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}} {
		if err := users.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return NewPointService(NewMemoryPointRepository(), users, nil, ""), users
}

func createPoint(t *testing.T, s *PointService, userID, title string, tag models.Tag, public bool) models.Point {
	t.Helper()
	p, err := s.Create(context.Background(), userID, CreatePointInput{
		Title:       title,
		Description: title + " description",
		Tag:         string(tag),
		Latitude:    ptr(40.7128),
		Longitude:   ptr(-74.0060),
		IsPublic:    public,
	})
	if err != nil {
		t.Fatalf("Create %s: %v", title, err)
	}
	return p
}

func TestPointService_CreateValidation(t *testing.T) {
	s, _ := newPointService(t)

	_, err := s.Create(context.Background(), "u1", CreatePointInput{Tag: "pizza", Latitude: ptr(95)})
	fields := errors.FieldErrors(err)
	for _, f := range []string{"title", "description", "tag", "longitude"} {
		if fields[f] == "" {
			t.Errorf("expected error for %s, got %v", f, fields)
		}
	}
}

func TestPointService_CreateStoresAttachments(t *testing.T) {
	dir := t.TempDir()
	s := NewPointService(NewMemoryPointRepository(), NewMemoryUserRepository(), nil, dir)

	att, _ := models.NewAttachment("photo.png", "image/png", []byte("png"))
	p, err := s.Create(context.Background(), "u1", CreatePointInput{
		Title: "Mural", Description: "Wall", Tag: "photo",
		Latitude: ptr(1), Longitude: ptr(2), IsPublic: true,
		Content: []models.Attachment{att},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(p.Content) != 1 || !strings.HasPrefix(p.Content[0], "/media/") || !strings.HasSuffix(p.Content[0], "-photo.png") {
		t.Fatalf("unexpected content %v", p.Content)
	}
	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(p.Content[0], "/media/")))
	if err != nil || string(data) != "png" {
		t.Errorf("expected stored attachment, got %q, %v", data, err)
	}
}

func TestPointService_ListVisibilityAndPaging(t *testing.T) {
	s, _ := newPointService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		createPoint(t, s, "u1", "public food", models.TagFood, true)
	}
	createPoint(t, s, "u1", "private music", models.TagMusic, false)
	createPoint(t, s, "u2", "bob private", models.TagFood, false)

	all, err := s.List(ctx, "u1", models.MapView, nil, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all.Points) != 4 || all.Paginated {
		t.Errorf("expected 4 unpaginated points for u1, got %d (paginated=%v)", len(all.Points), all.Paginated)
	}

	food, _ := s.List(ctx, "u2", models.MapView, []models.Tag{models.TagFood}, 0, 0)
	if len(food.Points) != 4 {
		t.Errorf("expected 3 public and 1 own food points, got %d", len(food.Points))
	}

	page, _ := s.List(ctx, "u1", models.ListView, nil, 2, 3)
	if !page.Paginated || page.TotalPages != 2 || len(page.Points) != 1 {
		t.Errorf("unexpected second page %+v", page)
	}

	empty, _ := s.List(ctx, "u1", models.ListView, []models.Tag{models.TagSchool}, 1, 10)
	if empty.TotalPages != 1 || len(empty.Points) != 0 {
		t.Errorf("expected one empty page, got %+v", empty)
	}
}

func TestPointService_Ownership(t *testing.T) {
	s, _ := newPointService(t)
	ctx := context.Background()
	p := createPoint(t, s, "u1", "Cafe", models.TagFood, true)

	patch := models.PatchFrom(p)
	patch.Title = "Bob's cafe"
	if _, err := s.Update(ctx, "u2", p.ID, patch); !errors.Is(err, errors.ErrPermissionDenied) {
		t.Errorf("expected permission denied, got %v", err)
	}
	if err := s.Delete(ctx, "u2", p.ID); !errors.Is(err, errors.ErrPermissionDenied) {
		t.Errorf("expected permission denied, got %v", err)
	}

	updated, err := s.Update(ctx, "u1", p.ID, patch)
	if err != nil || updated.Title != "Bob's cafe" {
		t.Fatalf("expected owner update, got %+v, %v", updated, err)
	}

	if err := s.Delete(ctx, "u1", p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "u1", p.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected deleted point hidden, got %v", err)
	}
}

func TestPointService_ReactionToggle(t *testing.T) {
	s, _ := newPointService(t)
	ctx := context.Background()
	p := createPoint(t, s, "u1", "Cafe", models.TagFood, true)
	react := models.InteractionInput{PointID: p.ID, InteractionType: models.InteractionReaction}

	res, err := s.CreateInteraction(ctx, "u2", react)
	if err != nil || !res.Created || res.Message != "Reaction added successfully" {
		t.Fatalf("unexpected first reaction %+v, %v", res, err)
	}
	got, _ := s.Get(ctx, "u2", p.ID)
	if got.Reactions != 1 {
		t.Errorf("expected 1 reaction, got %d", got.Reactions)
	}

	res, err = s.CreateInteraction(ctx, "u2", react)
	if err != nil || res.Created || res.Message != "Reaction removed successfully" {
		t.Fatalf("unexpected second reaction %+v, %v", res, err)
	}
	got, _ = s.Get(ctx, "u2", p.ID)
	if got.Reactions != 0 {
		t.Errorf("expected reaction removed, got %d", got.Reactions)
	}
}

func TestPointService_Comments(t *testing.T) {
	s, _ := newPointService(t)
	ctx := context.Background()
	p := createPoint(t, s, "u1", "Cafe", models.TagFood, true)

	_, err := s.CreateInteraction(ctx, "u2", models.InteractionInput{PointID: p.ID, InteractionType: models.InteractionComment, Content: "  "})
	if errors.FieldErrors(err)["content"] == "" {
		t.Errorf("expected content error, got %v", err)
	}
	_, err = s.CreateInteraction(ctx, "u2", models.InteractionInput{PointID: p.ID, InteractionType: "poke"})
	if errors.FieldErrors(err)["interactionType"] == "" {
		t.Errorf("expected interactionType error, got %v", err)
	}

	if _, err := s.CreateInteraction(ctx, "u2", models.InteractionInput{PointID: p.ID, InteractionType: models.InteractionComment, Content: "Great coffee"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	ints, err := s.ListInteractions(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(ints) != 1 || ints[0].Username != "bob" || ints[0].Content != "Great coffee" {
		t.Errorf("unexpected interactions %+v", ints)
	}
}

func TestPointService_NearbyWithoutRedis(t *testing.T) {
	s, _ := newPointService(t)
	ctx := context.Background()
	near := createPoint(t, s, "u1", "Near", models.TagFood, true)
	if _, err := s.Create(ctx, "u1", CreatePointInput{
		Title: "Far", Description: "d", Tag: "food",
		Latitude: ptr(41.5), Longitude: ptr(-74.0060), IsPublic: true,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Nearby(ctx, "u2", 40.7130, -74.0060, 3000, "")
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != near.ID || got[0].Distance > 100 {
		t.Errorf("expected only the near point, got %+v", got)
	}
	if _, err := s.Nearby(ctx, "u2", 200, 0, 3000, ""); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
