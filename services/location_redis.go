package services

import (
	"context"
	"fmt"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/logger"

	"github.com/redis/go-redis/v9"
)

// UsersGeoKey is the GEO set holding the last reported position of each user.
const UsersGeoKey = "users:geo"

type userIdentity interface {
	UserID() string
}

// RedisLocationSource follows the position another device reports for the
// signed-in user by polling the users GEO set.
type RedisLocationSource struct {
	client   *redis.Client
	user     userIdentity
	interval time.Duration
}

func NewRedisLocationSource(client *redis.Client, user userIdentity, interval time.Duration) *RedisLocationSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RedisLocationSource{client: client, user: user, interval: interval}
}

// RequestPermission succeeds when Redis answers and a user is signed in.
func (r *RedisLocationSource) RequestPermission(ctx context.Context) error {
	if r.user.UserID() == "" {
		return errors.PermissionDenied(fmt.Errorf("no signed-in user"))
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.PermissionDenied(err)
	}
	return nil
}

// Watch polls until ctx is done and emits only when the position changes.
func (r *RedisLocationSource) Watch(ctx context.Context) (<-chan models.Fix, error) {
	fixes := make(chan models.Fix, 1)
	go func() {
		defer close(fixes)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		var last *models.Fix
		for {
			fix, ok := r.position(ctx)
			if ok && (last == nil || last.Latitude != fix.Latitude || last.Longitude != fix.Longitude) {
				last = &fix
				select {
				case fixes <- fix:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return fixes, nil
}

func (r *RedisLocationSource) position(ctx context.Context) (models.Fix, bool) {
	positions, err := r.client.GeoPos(ctx, UsersGeoKey, r.user.UserID()).Result()
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("location: redis GeoPos error: %v", err)
		}
		return models.Fix{}, false
	}
	if len(positions) == 0 || positions[0] == nil {
		return models.Fix{}, false
	}
	return models.Fix{
		Latitude:  positions[0].Latitude,
		Longitude: positions[0].Longitude,
		Timestamp: time.Now().UTC(),
	}, true
}
