package tables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tably/pkg/config"
	"tably/pkg/model"
)

const CollectionName = "Tables"

// ErrNotFound covers both a missing table document and a document missing
// the attribute being asked for.
var ErrNotFound = errors.New("table not found")

type Repository interface {
	FindByLocation(ctx context.Context, locationID string) ([]*model.Table, error)
	FindByNumber(ctx context.Context, locationID, tableNumber string) (*model.Table, error)
	FindByID(ctx context.Context, locationID, tableID string) (*model.Table, error)
}

type mongoTableRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTableRepository(cfg *config.Config) Repository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTableRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoTableRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// FindByLocation returns every table at the location; an empty locationID
// returns tables across all locations.
func (r *mongoTableRepository) FindByLocation(ctx context.Context, locationID string) ([]*model.Table, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if locationID != "" {
		filter["location_id"] = locationID
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "location_id", Value: 1},
		{Key: "table_number", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tables: %w", err)
	}
	defer cursor.Close(ctx)

	var tables []*model.Table
	if err = cursor.All(ctx, &tables); err != nil {
		return nil, fmt.Errorf("failed to decode tables: %w", err)
	}

	return tables, nil
}

func (r *mongoTableRepository) FindByNumber(ctx context.Context, locationID, tableNumber string) (*model.Table, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"location_id":  locationID,
		"table_number": tableNumber,
	}

	var table model.Table
	err := r.collection.FindOne(ctx, filter).Decode(&table)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find table: %w", err)
	}

	return &table, nil
}

func (r *mongoTableRepository) FindByID(ctx context.Context, locationID, tableID string) (*model.Table, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"_id":         tableID,
		"location_id": locationID,
	}

	var table model.Table
	err := r.collection.FindOne(ctx, filter).Decode(&table)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find table: %w", err)
	}

	return &table, nil
}
