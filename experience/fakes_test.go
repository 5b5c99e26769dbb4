package experience

import (
	"context"
	"strconv"
	"sync"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
)

// manualDispatcher runs work and timers only when the test says so.
type manualDispatcher struct {
	now    time.Duration
	jobs   []func(context.Context) func()
	posted []func()
	timers []*manualTimer
}

type manualTimer struct {
	at        time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func (t *manualTimer) Cancel() { t.cancelled = true }

func (d *manualDispatcher) Go(work func(context.Context) func()) {
	d.jobs = append(d.jobs, work)
}

func (d *manualDispatcher) Post(fn func()) {
	d.posted = append(d.posted, fn)
}

func (d *manualDispatcher) AfterFunc(dur time.Duration, fn func()) Task {
	t := &manualTimer{at: d.now + dur, fn: fn}
	d.timers = append(d.timers, t)
	return t
}

// runJob runs the i-th pending job and its completion.
func (d *manualDispatcher) runJob(i int) {
	work := d.jobs[i]
	d.jobs = append(d.jobs[:i:i], d.jobs[i+1:]...)
	if complete := work(context.Background()); complete != nil {
		complete()
	}
	d.runPosted()
}

func (d *manualDispatcher) runPosted() {
	for len(d.posted) > 0 {
		fn := d.posted[0]
		d.posted = d.posted[1:]
		fn()
	}
}

// flush runs every job, including ones queued by completions, in order.
func (d *manualDispatcher) flush() {
	d.runPosted()
	for len(d.jobs) > 0 {
		d.runJob(0)
	}
}

// advance moves the clock and fires due timers that were not cancelled.
func (d *manualDispatcher) advance(dur time.Duration) {
	d.now += dur
	for {
		var next *manualTimer
		for _, t := range d.timers {
			if t.cancelled || t.fired || t.at > d.now {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			return
		}
		next.fired = true
		next.fn()
		d.runPosted()
	}
}

func (d *manualDispatcher) activeTimers() int {
	n := 0
	for _, t := range d.timers {
		if !t.cancelled && !t.fired {
			n++
		}
	}
	return n
}

type staticSession string

func (s staticSession) UserID() string { return string(s) }

type memoryBar struct {
	query    string
	replaces int
}

func (b *memoryBar) Query() string { return b.query }

func (b *memoryBar) Replace(q string) {
	b.query = q
	b.replaces++
}

// fakePointAPI serves points from memory. Hooks override single calls.
type fakePointAPI struct {
	mu      sync.Mutex
	data    []models.Point
	nextID  int
	queries []models.PointQuery
	drafts  []models.Draft
	patches []models.PointPatch
	deleted []string

	fetchErr  error
	createErr error
	updateErr error
	deleteErr error
	noPaging  bool
}

func newFakePointAPI(points ...models.Point) *fakePointAPI {
	return &fakePointAPI{data: append([]models.Point(nil), points...), nextID: 100}
}

func (f *fakePointAPI) FetchPoints(_ context.Context, _ string, q models.PointQuery) (models.PointPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.fetchErr != nil {
		return models.PointPage{}, f.fetchErr
	}
	var matched []models.Point
	for _, p := range f.data {
		if len(q.Tags) == 0 || containsTag(q.Tags, p.Tag) {
			matched = append(matched, p)
		}
	}
	if q.Mode == models.MapView {
		return models.PointPage{Points: matched}, nil
	}
	total := (len(matched) + q.PageSize - 1) / q.PageSize
	start := (q.Page - 1) * q.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := models.PointPage{Points: append([]models.Point(nil), matched[start:end]...)}
	if !f.noPaging {
		page.TotalPages = total
		page.HasPagination = true
	}
	return page, nil
}

func (f *fakePointAPI) CreatePoint(_ context.Context, userID string, d models.Draft) (models.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, d)
	if f.createErr != nil {
		return models.Point{}, f.createErr
	}
	f.nextID++
	p := models.Point{
		ID:          strconv.Itoa(f.nextID),
		UserID:      userID,
		Title:       d.Title,
		Description: d.Description,
		Tag:         d.Tag,
		Latitude:    d.Position.Latitude,
		Longitude:   d.Position.Longitude,
		IsPublic:    d.IsPublic,
	}
	f.data = append(f.data, p)
	return p, nil
}

func (f *fakePointAPI) UpdatePoint(_ context.Context, current models.Point, patch models.PointPatch) (models.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return models.Point{}, f.updateErr
	}
	updated := patch.Apply(current)
	for i := range f.data {
		if f.data[i].ID == current.ID {
			f.data[i] = updated
		}
	}
	return updated, nil
}

func (f *fakePointAPI) DeletePoint(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.data {
		if f.data[i].ID == id {
			f.data = append(f.data[:i], f.data[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("point " + id)
}

func (f *fakePointAPI) lastQuery() models.PointQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func containsTag(tags []models.Tag, t models.Tag) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}

func point(id string, tag models.Tag) models.Point {
	return models.Point{
		ID:          id,
		Title:       "Point " + id,
		Description: "About " + id,
		Tag:         tag,
		Latitude:    40.7,
		Longitude:   -74.0,
		IsPublic:    true,
	}
}

func manyPoints(n int, tag models.Tag) []models.Point {
	out := make([]models.Point, n)
	for i := range out {
		out[i] = point(strconv.Itoa(i+1), tag)
	}
	return out
}

type fakeInteractionAPI struct {
	items   map[string][]models.Interaction
	inputs  []models.InteractionInput
	listErr error
	postErr error
	clock   time.Time
}

func newFakeInteractionAPI() *fakeInteractionAPI {
	return &fakeInteractionAPI{items: map[string][]models.Interaction{}, clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeInteractionAPI) ListInteractions(_ context.Context, pointID string) ([]models.Interaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Interaction(nil), f.items[pointID]...), nil
}

func (f *fakeInteractionAPI) CreateInteraction(_ context.Context, in models.InteractionInput) error {
	f.inputs = append(f.inputs, in)
	if f.postErr != nil {
		return f.postErr
	}
	f.clock = f.clock.Add(time.Minute)
	if in.InteractionType == models.InteractionReaction {
		kept := f.items[in.PointID][:0]
		removed := false
		for _, i := range f.items[in.PointID] {
			if i.InteractionType == models.InteractionReaction && i.UserID == in.UserID {
				removed = true
				continue
			}
			kept = append(kept, i)
		}
		f.items[in.PointID] = kept
		if removed {
			return nil
		}
	}
	f.items[in.PointID] = append(f.items[in.PointID], models.Interaction{
		ID:              strconv.Itoa(len(f.inputs)),
		UserID:          in.UserID,
		Username:        "user-" + in.UserID,
		PointID:         in.PointID,
		InteractionType: in.InteractionType,
		Content:         in.Content,
		CreatedAt:       f.clock,
	})
	return nil
}

type fakeLocation struct {
	denyErr error
	fixes   []models.Fix
	watched bool
}

func (f *fakeLocation) RequestPermission(context.Context) error { return f.denyErr }

func (f *fakeLocation) Watch(context.Context) (<-chan models.Fix, error) {
	f.watched = true
	ch := make(chan models.Fix, len(f.fixes))
	for _, fix := range f.fixes {
		ch <- fix
	}
	close(ch)
	return ch, nil
}
