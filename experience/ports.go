package experience

import (
	"context"

	"mapquester/models"
)

// PointAPI is the backend surface for points. Implementations return
// *errors.APIError values classified as validation, transport or not found.
type PointAPI interface {
	FetchPoints(ctx context.Context, userID string, q models.PointQuery) (models.PointPage, error)
	CreatePoint(ctx context.Context, userID string, d models.Draft) (models.Point, error)
	// UpdatePoint sends patch and returns current merged with the response.
	UpdatePoint(ctx context.Context, current models.Point, patch models.PointPatch) (models.Point, error)
	DeletePoint(ctx context.Context, id string) error
}

// InteractionAPI is the backend surface for reactions and comments.
type InteractionAPI interface {
	ListInteractions(ctx context.Context, pointID string) ([]models.Interaction, error)
	CreateInteraction(ctx context.Context, in models.InteractionInput) error
}

// Session is the read-only view of the signed-in user.
type Session interface {
	UserID() string
}

// AddressBar holds the client-visible query string (without the leading '?').
type AddressBar interface {
	Query() string
	// Replace overwrites the current entry without adding history.
	Replace(rawQuery string)
}

// LocationSource is the device position provider.
type LocationSource interface {
	RequestPermission(ctx context.Context) error
	// Watch streams fixes until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan models.Fix, error)
}
