package experience

import (
	"time"

	"mapquester/models"
	"mapquester/utils/geo"
)

// NoticeLevel distinguishes confirmations from failures.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

func (l NoticeLevel) String() string {
	if l == NoticeError {
		return "error"
	}
	return "info"
}

// Notice is a dismissible message that also expires on its own.
type Notice struct {
	ID      int
	Level   NoticeLevel
	Message string
}

type noticeBoard struct {
	disp     Dispatcher
	ttl      time.Duration
	onExpire func()

	items []Notice
	tasks map[int]Task
	next  int
}

func (b *noticeBoard) push(level NoticeLevel, msg string) int {
	if b.tasks == nil {
		b.tasks = map[int]Task{}
	}
	b.next++
	id := b.next
	b.items = append(b.items, Notice{ID: id, Level: level, Message: msg})
	b.tasks[id] = b.disp.AfterFunc(b.ttl, func() {
		if b.remove(id) && b.onExpire != nil {
			b.onExpire()
		}
	})
	return id
}

func (b *noticeBoard) dismiss(id int) bool {
	if t, ok := b.tasks[id]; ok {
		t.Cancel()
	}
	return b.remove(id)
}

func (b *noticeBoard) remove(id int) bool {
	delete(b.tasks, id)
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

func (b *noticeBoard) clear() {
	for _, t := range b.tasks {
		t.Cancel()
	}
	b.tasks = nil
	b.items = nil
}

func (b *noticeBoard) list() []Notice {
	return append([]Notice(nil), b.items...)
}

// ListRow is one entry of the list presentation.
type ListRow struct {
	Point          models.Point
	DistanceMeters float64
	HasDistance    bool
}

// Presentation is an immutable snapshot of everything a renderer draws.
type Presentation struct {
	Mode     models.ViewMode
	ReadOnly bool
	View     ViewState

	Points      []models.Point
	Rows        []ListRow
	Cursor      Cursor
	Loading     bool
	FetchFailed bool
	Highlighted string

	Selection Selection
	Panel     Panel

	Pending      *models.Coordinate
	UserLocation *models.Fix
	Permission   PermissionState

	ActiveTags     []models.Tag
	StagedTags     []models.Tag
	FilterMenuOpen bool

	Dialog       *ConfirmDialog
	Notices      []Notice
	Interactions *InteractionsView
	Query        string
}

// Presentation snapshots the current state.
func (o *Orchestrator) Presentation() Presentation {
	sel := o.selection.Current()
	p := Presentation{
		Mode:           o.mode,
		ReadOnly:       o.opts.ReadOnly,
		View:           o.camera.View(),
		Points:         o.store.Points(),
		Cursor:         o.store.Cursor(),
		Loading:        o.store.Loading(),
		FetchFailed:    o.store.Err() != nil,
		Highlighted:    o.highlight,
		Selection:      sel,
		Panel:          BuildPanel(sel),
		Permission:     o.tracker.State(),
		ActiveTags:     o.filters.Active(),
		StagedTags:     o.filters.Staged(),
		FilterMenuOpen: o.filters.MenuOpen(),
		Notices:        o.notices.list(),
		Query:          EncodeQuery(o.filters.Active(), o.addressPointID()),
	}
	if c, ok := o.pending.Pending(); ok {
		p.Pending = &c
	}
	fix, hasFix := o.tracker.Location()
	if hasFix {
		p.UserLocation = &fix
	}
	if d, ok := o.confirm.Current(); ok {
		p.Dialog = &d
	}
	if o.interactions.PointID() != "" {
		v := o.interactions.View()
		p.Interactions = &v
	}
	if o.mode == models.ListView {
		p.Rows = make([]ListRow, len(p.Points))
		for i, pt := range p.Points {
			p.Rows[i] = ListRow{Point: pt}
			if hasFix {
				p.Rows[i].DistanceMeters = geo.DistanceMeters(fix.Position(), pt.Position())
				p.Rows[i].HasDistance = true
			}
		}
	}
	return p
}
