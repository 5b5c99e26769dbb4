package services

import (
	"context"
	"net/http"
	"strings"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/geo"
	"mapquester/utils/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.NewAPIError("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)

// UserService handles dev-backend accounts, tokens and location pings.
type UserService struct {
	users       UserRepository
	tokens      *TokenIssuer
	redisClient *redis.Client
}

// NewUserService wires the account store. redisClient may be nil, in which
// case location pings are refused.
func NewUserService(users UserRepository, tokens *TokenIssuer, redisClient *redis.Client) *UserService {
	return &UserService{users: users, tokens: tokens, redisClient: redisClient}
}

// Register creates a new user
func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	fields := map[string]string{}
	if username == "" {
		fields["username"] = "Username is required"
	}
	if len(password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	}
	if email != "" && !strings.Contains(email, "@") {
		fields["email"] = "Enter a valid email address"
	}
	if len(fields) > 0 {
		return models.User{}, errors.Validation(fields)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}
	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return models.User{}, err
	}
	logger.Info("Registered user %s (%s)", user.Username, user.ID)
	return user, nil
}

// Login authenticates a user and returns an access/refresh token pair
func (s *UserService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(user)
}

// Refresh trades a refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.Verify(refreshToken, RefreshTokenType)
	if err != nil {
		return "", err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", errors.ErrUnauthorized
	}
	return s.tokens.sign(user.ID, user.Username, AccessTokenType, s.tokens.accessTTL)
}

// GetUser looks a user up by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// PingLocation records the user's position in the users GEO set, where a
// RedisLocationSource picks it up.
func (s *UserService) PingLocation(ctx context.Context, userID string, lat, lon float64) error {
	if !geo.ValidCoordinate(models.Coordinate{Latitude: lat, Longitude: lon}) {
		return errors.Validation(map[string]string{"latitude": "Coordinates are out of range"})
	}
	if s.redisClient == nil {
		return errors.NewAPIError("LOCATION_DISABLED", "Location index is not configured", http.StatusServiceUnavailable)
	}
	err := s.redisClient.GeoAdd(ctx, UsersGeoKey, &redis.GeoLocation{
		Name:      userID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
	if err != nil {
		logger.Error("Failed to update Redis geospatial index: %v", err)
		return errors.Transport(err, http.StatusServiceUnavailable)
	}
	logger.Debug("Updated location for user %s: lat=%f, lon=%f", userID, lat, lon)
	return nil
}
