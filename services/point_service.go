package services

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/geo"
	"mapquester/utils/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PoisGeoKey is the GEO set indexing every live point.
const PoisGeoKey = "pois:geo"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const requiredField = "This field is required."

// PointListing is one response of the points listing.
type PointListing struct {
	Points     []models.Point
	TotalPages int
	Paginated  bool
}

// NearbyPoint is a point with its distance from the queried position.
type NearbyPoint struct {
	models.Point
	Distance float64 `json:"distance"`
}

// CreatePointInput is a decoded create form.
type CreatePointInput struct {
	Title       string
	Description string
	Tag         string
	Latitude    *float64
	Longitude   *float64
	IsPublic    bool
	Content     []models.Attachment
}

// PointService implements the dev backend's point and interaction rules.
type PointService struct {
	points      PointRepository
	users       UserRepository
	redisClient *redis.Client
	mediaDir    string
}

// NewPointService wires the stores. redisClient and mediaDir are optional:
// without Redis nearby queries scan the repository, without a media
// directory attachments are recorded by name only.
func NewPointService(points PointRepository, users UserRepository, redisClient *redis.Client, mediaDir string) *PointService {
	return &PointService{points: points, users: users, redisClient: redisClient, mediaDir: mediaDir}
}

// List returns the points visible to viewerID. Map mode returns everything;
// list mode returns one page and the page count.
func (s *PointService) List(ctx context.Context, viewerID string, mode models.ViewMode, tags []models.Tag, page, pageSize int) (PointListing, error) {
	all, err := s.points.ListPoints(ctx, PointFilter{ViewerID: viewerID, Tags: tags})
	if err != nil {
		return PointListing{}, err
	}
	if mode == models.MapView {
		return PointListing{Points: all}, nil
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	total := (len(all) + pageSize - 1) / pageSize
	if total < 1 {
		total = 1
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return PointListing{Points: all[start:end], TotalPages: total, Paginated: true}, nil
}

// Get returns one point if viewerID may see it.
func (s *PointService) Get(ctx context.Context, viewerID, id string) (models.Point, error) {
	p, err := s.points.GetPoint(ctx, id)
	if err != nil {
		return models.Point{}, err
	}
	if !(PointFilter{ViewerID: viewerID}).allows(p) {
		return models.Point{}, errors.NotFound("point " + id)
	}
	return p, nil
}

// Create validates and stores a new point owned by userID.
func (s *PointService) Create(ctx context.Context, userID string, in CreatePointInput) (models.Point, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = requiredField
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = requiredField
	}
	tag, ok := models.ParseTag(in.Tag)
	if !ok {
		fields["tag"] = "Select a valid choice."
	}
	if in.Latitude == nil {
		fields["latitude"] = requiredField
	}
	if in.Longitude == nil {
		fields["longitude"] = requiredField
	}
	if in.Latitude != nil && in.Longitude != nil &&
		!geo.ValidCoordinate(models.Coordinate{Latitude: *in.Latitude, Longitude: *in.Longitude}) {
		fields["latitude"] = "Coordinates are out of range."
	}
	for _, a := range in.Content {
		if _, err := models.NewAttachment(a.Filename, a.ContentType, nil); err != nil {
			fields["content"] = err.Error()
			break
		}
	}
	if len(fields) > 0 {
		return models.Point{}, errors.Validation(fields)
	}

	content, err := s.storeAttachments(in.Content)
	if err != nil {
		return models.Point{}, err
	}
	p, err := s.points.InsertPoint(ctx, models.Point{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tag:         tag,
		Latitude:    *in.Latitude,
		Longitude:   *in.Longitude,
		IsPublic:    in.IsPublic,
		Content:     content,
	})
	if err != nil {
		return models.Point{}, err
	}
	s.index(ctx, p)
	logger.Info("Created point %s (%s) for user %s", p.ID, p.Title, userID)
	return p, nil
}

func (s *PointService) storeAttachments(atts []models.Attachment) ([]string, error) {
	var out []string
	for _, a := range atts {
		name := uuid.NewString() + "-" + models.EscapeFilename(a.Filename)
		if s.mediaDir != "" {
			if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
				return nil, errors.Wrap(err, "MEDIA_ERROR", "failed to store attachment", http.StatusInternalServerError)
			}
			if err := os.WriteFile(filepath.Join(s.mediaDir, name), a.Data, 0o644); err != nil {
				return nil, errors.Wrap(err, "MEDIA_ERROR", "failed to store attachment", http.StatusInternalServerError)
			}
		}
		out = append(out, "/media/"+name)
	}
	return out, nil
}

// Update applies patch to a point owned by userID.
func (s *PointService) Update(ctx context.Context, userID, id string, patch models.PointPatch) (models.Point, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return models.Point{}, err
	}
	fields := map[string]string{}
	if strings.TrimSpace(patch.Title) == "" {
		fields["title"] = requiredField
	}
	if strings.TrimSpace(patch.Description) == "" {
		fields["description"] = requiredField
	}
	if !patch.Tag.Valid() {
		fields["tag"] = "Select a valid choice."
	}
	if !geo.ValidCoordinate(models.Coordinate{Latitude: patch.Latitude, Longitude: patch.Longitude}) {
		fields["latitude"] = "Coordinates are out of range."
	}
	if len(fields) > 0 {
		return models.Point{}, errors.Validation(fields)
	}

	if err := s.points.SavePoint(ctx, patch.Apply(p)); err != nil {
		return models.Point{}, err
	}
	updated, err := s.points.GetPoint(ctx, id)
	if err != nil {
		return models.Point{}, err
	}
	s.index(ctx, updated)
	return updated, nil
}

// Delete logically deletes a point owned by userID.
func (s *PointService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.points.DeletePoint(ctx, id); err != nil {
		return err
	}
	if s.redisClient != nil {
		if err := s.redisClient.ZRem(ctx, PoisGeoKey, id).Err(); err != nil {
			logger.Error("Failed to remove point %s from Redis Geo set: %v", id, err)
		}
	}
	logger.Info("Deleted point %s", id)
	return nil
}

func (s *PointService) owned(ctx context.Context, userID, id string) (models.Point, error) {
	p, err := s.points.GetPoint(ctx, id)
	if err != nil {
		return models.Point{}, err
	}
	if p.UserID != userID {
		return models.Point{}, errors.ErrPermissionDenied
	}
	return p, nil
}

func (s *PointService) index(ctx context.Context, p models.Point) {
	if s.redisClient == nil {
		return
	}
	err := s.redisClient.GeoAdd(ctx, PoisGeoKey, &redis.GeoLocation{
		Name:      p.ID,
		Longitude: p.Longitude,
		Latitude:  p.Latitude,
	}).Err()
	if err != nil {
		logger.Error("Failed to add point %s to Redis Geo set: %v", p.ID, err)
	}
}

// Nearby returns visible points within radius meters of (lat, lon), closest first.
func (s *PointService) Nearby(ctx context.Context, viewerID string, lat, lon, radius float64, tag models.Tag) ([]NearbyPoint, error) {
	center := models.Coordinate{Latitude: lat, Longitude: lon}
	if !geo.ValidCoordinate(center) || radius <= 0 {
		return nil, errors.ErrInvalidInput
	}
	filter := PointFilter{ViewerID: viewerID}
	if tag != "" {
		filter.Tags = []models.Tag{tag}
	}

	var out []NearbyPoint
	if s.redisClient != nil {
		results, err := s.redisClient.GeoRadius(ctx, PoisGeoKey, lon, lat, &redis.GeoRadiusQuery{
			Radius:   radius,
			Unit:     "m",
			WithDist: true,
			Sort:     "ASC",
			Count:    50,
		}).Result()
		if err != nil {
			logger.Error("Redis GeoRadius error: %v", err)
			return nil, errors.Transport(err, http.StatusServiceUnavailable)
		}
		for _, r := range results {
			p, err := s.points.GetPoint(ctx, r.Name)
			if err != nil || !filter.allows(p) {
				continue
			}
			out = append(out, NearbyPoint{Point: p, Distance: r.Dist})
		}
		return out, nil
	}

	all, err := s.points.ListPoints(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if d := geo.DistanceMeters(center, p.Position()); d <= radius {
			out = append(out, NearbyPoint{Point: p, Distance: d})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Distance < out[b].Distance })
	return out, nil
}

// ListInteractions returns the point's interactions with usernames filled in.
func (s *PointService) ListInteractions(ctx context.Context, pointID string) ([]models.Interaction, error) {
	if _, err := s.points.GetPoint(ctx, pointID); err != nil {
		return nil, err
	}
	ints, err := s.points.ListInteractions(ctx, pointID)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for i := range ints {
		id := ints[i].UserID
		name, ok := names[id]
		if !ok {
			if u, err := s.users.FindByID(ctx, id); err == nil {
				name = u.Username
			}
			names[id] = name
		}
		ints[i].Username = name
	}
	return ints, nil
}

// InteractionResult says what CreateInteraction did.
type InteractionResult struct {
	Message       string `json:"message"`
	InteractionID string `json:"interaction_id,omitempty"`
	Created       bool   `json:"-"`
}

// CreateInteraction adds a comment, or toggles userID's reaction on the point.
func (s *PointService) CreateInteraction(ctx context.Context, userID string, in models.InteractionInput) (InteractionResult, error) {
	switch in.InteractionType {
	case models.InteractionReaction, models.InteractionComment:
	default:
		return InteractionResult{}, errors.Validation(map[string]string{
			"interactionType": "Invalid interactionType. Must be 'reaction' or 'comment'.",
		})
	}
	if in.InteractionType == models.InteractionComment && strings.TrimSpace(in.Content) == "" {
		return InteractionResult{}, errors.Validation(map[string]string{"content": "Content is required for comments."})
	}
	if _, err := s.points.GetPoint(ctx, in.PointID); err != nil {
		return InteractionResult{}, err
	}

	if in.InteractionType == models.InteractionReaction {
		existing, err := s.points.ListInteractions(ctx, in.PointID)
		if err != nil {
			return InteractionResult{}, err
		}
		for _, e := range existing {
			if e.InteractionType == models.InteractionReaction && e.UserID == userID {
				if err := s.points.RemoveInteraction(ctx, e.ID); err != nil {
					return InteractionResult{}, err
				}
				if err := s.points.AdjustReactions(ctx, in.PointID, -1); err != nil {
					return InteractionResult{}, err
				}
				return InteractionResult{Message: "Reaction removed successfully"}, nil
			}
		}
	}

	created, err := s.points.AddInteraction(ctx, models.Interaction{
		UserID:          userID,
		PointID:         in.PointID,
		InteractionType: in.InteractionType,
		Content:         strings.TrimSpace(in.Content),
	})
	if err != nil {
		return InteractionResult{}, err
	}
	if in.InteractionType == models.InteractionReaction {
		if err := s.points.AdjustReactions(ctx, in.PointID, 1); err != nil {
			return InteractionResult{}, err
		}
		return InteractionResult{Message: "Reaction added successfully", InteractionID: created.ID, Created: true}, nil
	}
	return InteractionResult{Message: "Interaction created successfully", InteractionID: created.ID, Created: true}, nil
}
