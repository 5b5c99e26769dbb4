package experience

import (
	"context"

	"mapquester/models"
	"mapquester/utils/logger"
)

// Cursor is the list pagination position.
type Cursor struct {
	Page    int
	HasMore bool
}

var firstPage = Cursor{Page: 1, HasMore: true}

// PointStore is the materialised point set for the current mode and filter.
// Only its own fetches and the persistence gateway write to it.
type PointStore struct {
	api      PointAPI
	disp     Dispatcher
	session  Session
	pageSize int

	points  []models.Point
	mode    models.ViewMode
	tags    []models.Tag
	cursor  Cursor
	loading bool
	gen     uint64
	err     error
	loaded  bool
	pinned  map[string]bool

	failedPage int

	// onLoaded runs on the loop after every non-stale response.
	onLoaded func(err error)
}

func NewPointStore(api PointAPI, disp Dispatcher, session Session, pageSize int, onLoaded func(error)) *PointStore {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &PointStore{
		api:      api,
		disp:     disp,
		session:  session,
		pageSize: pageSize,
		cursor:   firstPage,
		pinned:   map[string]bool{},
		onLoaded: onLoaded,
	}
}

// Points returns a copy of the held set.
func (s *PointStore) Points() []models.Point {
	out := make([]models.Point, len(s.points))
	copy(out, s.points)
	return out
}

func (s *PointStore) Cursor() Cursor         { return s.cursor }
func (s *PointStore) Loading() bool          { return s.loading }
func (s *PointStore) Mode() models.ViewMode  { return s.mode }
func (s *PointStore) Generation() uint64     { return s.gen }
func (s *PointStore) Loaded() bool           { return s.loaded }
func (s *PointStore) PageSize() int          { return s.pageSize }
func (s *PointStore) Err() error             { return s.err }
func (s *PointStore) ClearError()            { s.err = nil }
func (s *PointStore) Pinned(id string) bool  { return s.pinned[id] }

// Find returns the held point with the given id.
func (s *PointStore) Find(id string) (models.Point, bool) {
	if i := s.index(id); i >= 0 {
		return s.points[i], true
	}
	return models.Point{}, false
}

func (s *PointStore) index(id string) int {
	if id == "" {
		return -1
	}
	for i, p := range s.points {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// ResetCursor moves back to the first page and drops pinned points.
func (s *PointStore) ResetCursor() {
	s.cursor = firstPage
	s.pinned = map[string]bool{}
}

// Fetch resets the cursor and requests the first page for tags and mode. Any
// request still in flight becomes stale.
func (s *PointStore) Fetch(tags []models.Tag, mode models.ViewMode) {
	s.ResetCursor()
	s.tags = append([]models.Tag(nil), tags...)
	s.mode = mode
	s.request(1)
}

// Refresh re-requests the first page without dropping pinned points.
func (s *PointStore) Refresh() {
	s.cursor = firstPage
	s.request(1)
}

// LoadMore requests the next list page. It is a no-op in map mode, while a
// request is in flight, or when there are no more pages.
func (s *PointStore) LoadMore() bool {
	if s.mode != models.ListView || !s.cursor.HasMore || s.loading {
		return false
	}
	s.request(s.cursor.Page + 1)
	return true
}

// Retry repeats the page that last failed. The cursor was not advanced by
// the failure, so a failed next page is requested again.
func (s *PointStore) Retry() bool {
	if s.err == nil || s.loading {
		return false
	}
	page := s.failedPage
	if page < 1 {
		page = 1
	}
	s.request(page)
	return true
}

// Clear drops every held point and pin, and makes in-flight responses stale.
func (s *PointStore) Clear() {
	s.Invalidate()
	s.points = nil
	s.pinned = map[string]bool{}
	s.cursor = firstPage
	s.err = nil
	s.failedPage = 0
	s.loaded = false
}

// Invalidate makes every in-flight response stale.
func (s *PointStore) Invalidate() {
	s.gen++
	s.loading = false
}

func (s *PointStore) request(page int) {
	s.gen++
	gen := s.gen
	s.loading = true
	q := models.PointQuery{
		Mode:     s.mode,
		Tags:     append([]models.Tag(nil), s.tags...),
		Page:     page,
		PageSize: s.pageSize,
	}
	userID := ""
	if s.session != nil {
		userID = s.session.UserID()
	}
	logger.Debug("PointStore: request gen=%d mode=%s page=%d tags=%v", gen, q.Mode, q.Page, q.Tags)
	s.disp.Go(func(ctx context.Context) func() {
		result, err := s.api.FetchPoints(ctx, userID, q)
		return func() { s.resolve(gen, q, result, err) }
	})
}

func (s *PointStore) resolve(gen uint64, q models.PointQuery, result models.PointPage, err error) {
	if gen != s.gen {
		logger.Debug("PointStore: discarding stale response gen=%d (current %d)", gen, s.gen)
		return
	}
	s.loading = false
	if err != nil {
		logger.Error("PointStore: fetch page %d failed: %v", q.Page, err)
		s.err = err
		s.failedPage = q.Page
		s.notify(err)
		return
	}

	if q.Mode == models.MapView || q.Page == 1 {
		s.replace(result.Points)
	} else {
		s.appendPage(result.Points)
	}

	s.cursor.Page = q.Page
	switch {
	case q.Mode == models.MapView:
		s.cursor.HasMore = false
	case result.HasPagination:
		s.cursor.HasMore = q.Page < result.TotalPages
	default:
		s.cursor.HasMore = len(result.Points) == q.PageSize
	}
	s.err = nil
	s.loaded = true
	s.notify(nil)
}

func (s *PointStore) notify(err error) {
	if s.onLoaded != nil {
		s.onLoaded(err)
	}
}

// replace swaps in a fresh first page, keeping pinned points the response
// did not include.
func (s *PointStore) replace(points []models.Point) {
	next := make([]models.Point, 0, len(points)+len(s.pinned))
	seen := make(map[string]bool, len(points))
	for _, p := range points {
		if p.ID != "" && seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		next = append(next, p)
	}
	for _, p := range s.points {
		if s.pinned[p.ID] && !seen[p.ID] {
			next = append(next, p)
		}
	}
	s.points = next
}

func (s *PointStore) appendPage(points []models.Point) {
	for _, p := range points {
		if s.index(p.ID) >= 0 {
			continue
		}
		s.points = append(s.points, p)
	}
}

// Insert adds a newly persisted point once and pins it. An existing entry with
// the same id is replaced instead.
func (s *PointStore) Insert(p models.Point) {
	if i := s.index(p.ID); i >= 0 {
		s.points[i] = p
	} else {
		s.points = append(s.points, p)
	}
	if p.ID != "" {
		s.pinned[p.ID] = true
	}
}

// Replace overwrites the entry with p.ID. Missing ids are ignored.
func (s *PointStore) Replace(p models.Point) bool {
	i := s.index(p.ID)
	if i < 0 {
		return false
	}
	s.points[i] = p
	return true
}

// Remove drops the entry with id. Missing ids are ignored.
func (s *PointStore) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.points = append(s.points[:i], s.points[i+1:]...)
	delete(s.pinned, id)
	return true
}
