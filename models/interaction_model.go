package models

import (
	"fmt"
	"sort"
	"time"
)

// InteractionType distinguishes reactions from comments.
type InteractionType string

const (
	InteractionReaction InteractionType = "reaction"
	InteractionComment  InteractionType = "comment"
)

// HeartReaction is the only reaction the client offers.
const HeartReaction = "❤️"

// Interaction is a reaction or comment left on a point.
type Interaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Username        string          `json:"username,omitempty"`
	PointID         string          `json:"poiId,omitempty"`
	InteractionType InteractionType `json:"interactionType"`
	Content         string          `json:"content,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt,omitempty"`
}

// InteractionInput is the body of an interaction create request.
type InteractionInput struct {
	UserID          string          `json:"userId"`
	PointID         string          `json:"poiId"`
	InteractionType InteractionType `json:"interactionType"`
	Content         string          `json:"content,omitempty"`
}

// ReactionUser is one entry of the "who reacted" list.
type ReactionUser struct {
	UserID    string
	Username  string
	CreatedAt time.Time
}

// Comments returns the comments in ints, newest first.
func Comments(ints []Interaction) []Interaction {
	var out []Interaction
	for _, i := range ints {
		if i.InteractionType == InteractionComment {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// ReactionUsers returns the users who reacted, newest first.
func ReactionUsers(ints []Interaction) []ReactionUser {
	var out []ReactionUser
	for _, i := range ints {
		if i.InteractionType != InteractionReaction {
			continue
		}
		out = append(out, ReactionUser{UserID: i.UserID, Username: i.Username, CreatedAt: i.CreatedAt})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// HasReacted reports whether userID has a reaction in ints.
func HasReacted(ints []Interaction, userID string) bool {
	if userID == "" {
		return false
	}
	for _, i := range ints {
		if i.InteractionType == InteractionReaction && i.UserID == userID {
			return true
		}
	}
	return false
}

// RelativeTime renders t relative to now the way comment timestamps are shown.
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	secs := int(diff / time.Second)
	mins := secs / 60
	hours := mins / 60
	days := hours / 24
	switch {
	case secs < 1:
		return "now"
	case secs < 60:
		return fmt.Sprintf("%d sec ago", secs)
	case mins < 60:
		return fmt.Sprintf("%d min ago", mins)
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	case days < 30:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
