package experience

import (
	"context"
	"strings"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/logger"
)

// InteractionsView is what the detail panel shows under a point.
type InteractionsView struct {
	PointID       string
	Comments      []models.Interaction
	ReactionUsers []models.ReactionUser
	ReactionCount int
	HasReacted    bool
	Loading       bool
	Posting       bool
	Err           error
}

// InteractionsPanel loads and posts reactions and comments for the viewed
// point.
type InteractionsPanel struct {
	api     InteractionAPI
	disp    Dispatcher
	session Session

	pointID string
	items   []models.Interaction
	loading bool
	posting bool
	gen     uint64
	err     error

	onChange func()
}

func NewInteractionsPanel(api InteractionAPI, disp Dispatcher, session Session, onChange func()) *InteractionsPanel {
	return &InteractionsPanel{api: api, disp: disp, session: session, onChange: onChange}
}

func (p *InteractionsPanel) PointID() string { return p.pointID }

// Open shows the interactions of pointID, reloading them.
func (p *InteractionsPanel) Open(pointID string) {
	if p.api == nil || pointID == "" {
		return
	}
	if pointID != p.pointID {
		p.items = nil
		p.err = nil
		p.posting = false
	}
	p.pointID = pointID
	p.Reload()
}

// Close hides the panel. In-flight responses become stale.
func (p *InteractionsPanel) Close() {
	p.gen++
	p.pointID = ""
	p.items = nil
	p.loading = false
	p.posting = false
	p.err = nil
}

// Reload fetches the interactions of the open point.
func (p *InteractionsPanel) Reload() {
	if p.pointID == "" {
		return
	}
	p.gen++
	gen, id := p.gen, p.pointID
	p.loading = true
	p.disp.Go(func(ctx context.Context) func() {
		items, err := p.api.ListInteractions(ctx, id)
		return func() {
			if gen != p.gen {
				return
			}
			p.loading = false
			if err != nil {
				logger.Error("Interactions: load %s failed: %v", id, err)
				p.err = err
			} else {
				p.items, p.err = items, nil
			}
			p.changed()
		}
	})
}

// React toggles the current user's heart on the open point.
func (p *InteractionsPanel) React() error {
	return p.post(models.InteractionReaction, models.HeartReaction)
}

// Comment posts text on the open point. Blank comments are refused.
func (p *InteractionsPanel) Comment(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.Validation(map[string]string{"content": "Comment cannot be empty"})
	}
	return p.post(models.InteractionComment, text)
}

func (p *InteractionsPanel) post(kind models.InteractionType, content string) error {
	if p.api == nil || p.pointID == "" {
		return ErrInvalidTransition
	}
	if p.posting {
		return nil
	}
	in := models.InteractionInput{
		PointID:         p.pointID,
		InteractionType: kind,
		Content:         content,
	}
	if p.session != nil {
		in.UserID = p.session.UserID()
	}
	p.posting = true
	id := p.pointID
	p.disp.Go(func(ctx context.Context) func() {
		err := p.api.CreateInteraction(ctx, in)
		return func() {
			if id != p.pointID {
				return
			}
			p.posting = false
			if err != nil {
				logger.Error("Interactions: post %s on %s failed: %v", kind, id, err)
				p.err = err
				p.changed()
				return
			}
			p.Reload()
		}
	})
	return nil
}

// View snapshots the panel for rendering.
func (p *InteractionsPanel) View() InteractionsView {
	userID := ""
	if p.session != nil {
		userID = p.session.UserID()
	}
	users := models.ReactionUsers(p.items)
	return InteractionsView{
		PointID:       p.pointID,
		Comments:      models.Comments(p.items),
		ReactionUsers: users,
		ReactionCount: len(users),
		HasReacted:    models.HasReacted(p.items, userID),
		Loading:       p.loading,
		Posting:       p.posting,
		Err:           p.err,
	}
}

// CommentTime renders a comment timestamp relative to now.
func CommentTime(c models.Interaction, now time.Time) string {
	return models.RelativeTime(c.CreatedAt, now)
}

func (p *InteractionsPanel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}
