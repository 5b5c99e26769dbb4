package services

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
)

// PointFilter selects the points a viewer may see.
type PointFilter struct {
	ViewerID string
	Tags     []models.Tag
}

func (f PointFilter) allows(p models.Point) bool {
	if !p.IsPublic && p.UserID != f.ViewerID {
		return false
	}
	if len(f.Tags) == 0 {
		return true
	}
	for _, t := range f.Tags {
		if p.Tag == t {
			return true
		}
	}
	return false
}

// PointRepository stores points and their interactions for the dev backend.
// Deleted points are kept but behave as missing.
type PointRepository interface {
	InsertPoint(ctx context.Context, p models.Point) (models.Point, error)
	GetPoint(ctx context.Context, id string) (models.Point, error)
	SavePoint(ctx context.Context, p models.Point) error
	DeletePoint(ctx context.Context, id string) error
	// ListPoints returns visible points, newest first.
	ListPoints(ctx context.Context, f PointFilter) ([]models.Point, error)
	AdjustReactions(ctx context.Context, pointID string, delta int) error

	AddInteraction(ctx context.Context, in models.Interaction) (models.Interaction, error)
	RemoveInteraction(ctx context.Context, id string) error
	// ListInteractions returns the point's interactions, newest first.
	ListInteractions(ctx context.Context, pointID string) ([]models.Interaction, error)
}

type storedPoint struct {
	models.Point
	deleted bool
}

// MemoryPointRepository is a PointRepository for tests and the dev server's
// default mode.
type MemoryPointRepository struct {
	mu           sync.RWMutex
	points       map[string]*storedPoint
	interactions []models.Interaction
	nextPoint    int
	nextInter    int
	now          func() time.Time
}

func NewMemoryPointRepository() *MemoryPointRepository {
	return &MemoryPointRepository{points: map[string]*storedPoint{}, now: time.Now}
}

func (m *MemoryPointRepository) InsertPoint(_ context.Context, p models.Point) (models.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPoint++
	p.ID = strconv.Itoa(m.nextPoint)
	now := m.now().UTC()
	p.CreatedAt, p.UpdatedAt = &now, &now
	m.points[p.ID] = &storedPoint{Point: p}
	return p, nil
}

func (m *MemoryPointRepository) GetPoint(_ context.Context, id string) (models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sp, ok := m.points[id]
	if !ok || sp.deleted {
		return models.Point{}, errors.NotFound("point " + id)
	}
	return sp.Point, nil
}

func (m *MemoryPointRepository) SavePoint(_ context.Context, p models.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.points[p.ID]
	if !ok || sp.deleted {
		return errors.NotFound("point " + p.ID)
	}
	now := m.now().UTC()
	p.CreatedAt, p.UpdatedAt = sp.CreatedAt, &now
	sp.Point = p
	return nil
}

func (m *MemoryPointRepository) DeletePoint(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.points[id]
	if !ok || sp.deleted {
		return errors.NotFound("point " + id)
	}
	sp.deleted = true
	return nil
}

func (m *MemoryPointRepository) ListPoints(_ context.Context, f PointFilter) ([]models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Point
	for _, sp := range m.points {
		if sp.deleted || !f.allows(sp.Point) {
			continue
		}
		out = append(out, sp.Point)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryPointRepository) AdjustReactions(_ context.Context, pointID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.points[pointID]
	if !ok || sp.deleted {
		return errors.NotFound("point " + pointID)
	}
	sp.Reactions += delta
	if sp.Reactions < 0 {
		sp.Reactions = 0
	}
	return nil
}

func (m *MemoryPointRepository) AddInteraction(_ context.Context, in models.Interaction) (models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextInter++
	in.ID = strconv.Itoa(m.nextInter)
	in.CreatedAt = m.now().UTC()
	in.UpdatedAt = in.CreatedAt
	m.interactions = append(m.interactions, in)
	return in, nil
}

func (m *MemoryPointRepository) RemoveInteraction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, in := range m.interactions {
		if in.ID == id {
			m.interactions = append(m.interactions[:i], m.interactions[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("interaction " + id)
}

func (m *MemoryPointRepository) ListInteractions(_ context.Context, pointID string) ([]models.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Interaction
	for _, in := range m.interactions {
		if in.PointID == pointID {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return idLess(out[b].ID, out[a].ID)
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

func sortNewestFirst(points []models.Point) {
	sort.SliceStable(points, func(a, b int) bool {
		ca, cb := points[a].CreatedAt, points[b].CreatedAt
		if ca != nil && cb != nil && !ca.Equal(*cb) {
			return ca.After(*cb)
		}
		return idLess(points[b].ID, points[a].ID)
	})
}

// idLess orders numeric ids numerically and everything else lexically.
func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
