package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoDatabase = "poi_db"

// MongoStore backs both dev-backend repositories with MongoDB.
type MongoStore struct {
	client       *mongo.Client
	points       *mongo.Collection
	interactions *mongo.Collection
	users        *mongo.Collection
}

// NewMongoStore connects, pings and ensures the indexes the repositories rely on.
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	logger.Info("Connected to MongoDB")

	db := client.Database(mongoDatabase)
	s := &MongoStore{
		client:       client,
		points:       db.Collection("pois"),
		interactions: db.Collection("interactions"),
		users:        db.Collection("users"),
	}
	s.ensureIndexes(ctx)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.points, mongo.IndexModel{Keys: bson.D{{Key: "location", Value: "2dsphere"}}}},
		{s.points, mongo.IndexModel{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.interactions, mongo.IndexModel{Keys: bson.D{{Key: "poiId", Value: 1}, {Key: "createdAt", Value: -1}}}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			logger.Error("Failed to create index on %s: %v", ix.coll.Name(), err)
		}
	}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Points returns the store as a PointRepository.
func (s *MongoStore) Points() PointRepository { return (*mongoPoints)(s) }

// Users returns the store as a UserRepository.
func (s *MongoStore) Users() UserRepository { return (*mongoUsers)(s) }

type geoJSONPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type pointDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Tag         string             `bson:"tag"`
	Latitude    float64            `bson:"latitude"`
	Longitude   float64            `bson:"longitude"`
	Location    geoJSONPoint       `bson:"location"`
	IsPublic    bool               `bson:"isPublic"`
	IsDeleted   bool               `bson:"isDeleted"`
	Reactions   int                `bson:"reactions"`
	Content     []string           `bson:"content,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d pointDocument) point() models.Point {
	created, updated := d.CreatedAt, d.UpdatedAt
	return models.Point{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Tag:         models.Tag(d.Tag),
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		IsPublic:    d.IsPublic,
		Reactions:   d.Reactions,
		Content:     d.Content,
		CreatedAt:   &created,
		UpdatedAt:   &updated,
	}
}

type mongoPoints MongoStore

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.NotFound("point " + id)
	}
	return oid, nil
}

func (s *mongoPoints) InsertPoint(ctx context.Context, p models.Point) (models.Point, error) {
	now := time.Now().UTC()
	doc := pointDocument{
		UserID:      p.UserID,
		Title:       p.Title,
		Description: p.Description,
		Tag:         string(p.Tag),
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Location:    geoJSONPoint{Type: "Point", Coordinates: []float64{p.Longitude, p.Latitude}},
		IsPublic:    p.IsPublic,
		Content:     p.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.points.InsertOne(ctx, doc)
	if err != nil {
		return models.Point{}, errors.Wrap(err, "DB_ERROR", "failed to create point in database", http.StatusInternalServerError)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.point(), nil
}

func (s *mongoPoints) GetPoint(ctx context.Context, id string) (models.Point, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.Point{}, err
	}
	var doc pointDocument
	err = s.points.FindOne(ctx, bson.M{"_id": oid, "isDeleted": false}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return models.Point{}, errors.NotFound("point " + id)
	}
	if err != nil {
		return models.Point{}, errors.Wrap(err, "DB_ERROR", "failed to read point", http.StatusInternalServerError)
	}
	return doc.point(), nil
}

func (s *mongoPoints) SavePoint(ctx context.Context, p models.Point) error {
	oid, err := objectID(p.ID)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"title":       p.Title,
		"description": p.Description,
		"tag":         string(p.Tag),
		"latitude":    p.Latitude,
		"longitude":   p.Longitude,
		"location":    geoJSONPoint{Type: "Point", Coordinates: []float64{p.Longitude, p.Latitude}},
		"isPublic":    p.IsPublic,
		"updatedAt":   time.Now().UTC(),
	}}
	res, err := s.points.UpdateOne(ctx, bson.M{"_id": oid, "isDeleted": false}, update)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to update point", http.StatusInternalServerError)
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("point " + p.ID)
	}
	return nil
}

func (s *mongoPoints) DeletePoint(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.points.UpdateOne(ctx,
		bson.M{"_id": oid, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to delete point", http.StatusInternalServerError)
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("point " + id)
	}
	return nil
}

func (s *mongoPoints) ListPoints(ctx context.Context, f PointFilter) ([]models.Point, error) {
	filter := bson.M{
		"isDeleted": false,
		"$or":       bson.A{bson.M{"isPublic": true}, bson.M{"userId": f.ViewerID}},
	}
	if len(f.Tags) > 0 {
		tags := make(bson.A, 0, len(f.Tags))
		for _, t := range f.Tags {
			tags = append(tags, string(t))
		}
		filter["tag"] = bson.M{"$in": tags}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.points.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list points", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var docs []pointDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to decode points", http.StatusInternalServerError)
	}
	out := make([]models.Point, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.point())
	}
	return out, nil
}

func (s *mongoPoints) AdjustReactions(ctx context.Context, pointID string, delta int) error {
	oid, err := objectID(pointID)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "isDeleted": false}
	if delta < 0 {
		filter["reactions"] = bson.M{"$gte": -delta}
	}
	res, err := s.points.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"reactions": delta}})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to update reactions", http.StatusInternalServerError)
	}
	if res.MatchedCount == 0 {
		// either missing or already at zero
		_, err := s.GetPoint(ctx, pointID)
		return err
	}
	return nil
}

type interactionDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	PointID         string             `bson:"poiId"`
	UserID          string             `bson:"userId"`
	InteractionType string             `bson:"interactionType"`
	Content         string             `bson:"content,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (s *mongoPoints) AddInteraction(ctx context.Context, in models.Interaction) (models.Interaction, error) {
	now := time.Now().UTC()
	doc := interactionDocument{
		PointID:         in.PointID,
		UserID:          in.UserID,
		InteractionType: string(in.InteractionType),
		Content:         in.Content,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	res, err := s.interactions.InsertOne(ctx, doc)
	if err != nil {
		return models.Interaction{}, errors.Wrap(err, "DB_ERROR", "failed to create interaction", http.StatusInternalServerError)
	}
	in.ID = res.InsertedID.(primitive.ObjectID).Hex()
	in.CreatedAt, in.UpdatedAt = now, now
	return in, nil
}

func (s *mongoPoints) RemoveInteraction(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.NotFound("interaction " + id)
	}
	res, err := s.interactions.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to delete interaction", http.StatusInternalServerError)
	}
	if res.DeletedCount == 0 {
		return errors.NotFound("interaction " + id)
	}
	return nil
}

func (s *mongoPoints) ListInteractions(ctx context.Context, pointID string) ([]models.Interaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.interactions.Find(ctx, bson.M{"poiId": pointID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list interactions", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var docs []interactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to decode interactions", http.StatusInternalServerError)
	}
	out := make([]models.Interaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.Interaction{
			ID:              d.ID.Hex(),
			UserID:          d.UserID,
			PointID:         d.PointID,
			InteractionType: models.InteractionType(d.InteractionType),
			Content:         d.Content,
			CreatedAt:       d.CreatedAt,
			UpdatedAt:       d.UpdatedAt,
		})
	}
	return out, nil
}

type mongoUsers MongoStore

func (s *mongoUsers) CreateUser(ctx context.Context, u models.User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrConflict
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create user in database", http.StatusInternalServerError)
	}
	return nil
}

func (s *mongoUsers) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return s.findOne(ctx, bson.M{"username": username}, username)
}

func (s *mongoUsers) FindByID(ctx context.Context, id string) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, id)
}

func (s *mongoUsers) findOne(ctx context.Context, filter bson.M, what string) (models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return models.User{}, errors.NotFound("user " + what)
	}
	if err != nil {
		return models.User{}, errors.Wrap(err, "DB_ERROR", "failed to read user", http.StatusInternalServerError)
	}
	return u, nil
}
