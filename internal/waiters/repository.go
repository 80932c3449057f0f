package waiters

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tably/pkg/config"
	"tably/pkg/model"
)

const CollectionName = "Waiters"

// Repository exposes the waiter roster, read-only reference data owned by
// staff management.
type Repository interface {
	FindByLocation(ctx context.Context, locationID string) ([]*model.Waiter, error)
}

type mongoWaiterRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWaiterRepository(cfg *config.Config) Repository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWaiterRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoWaiterRepository) FindByLocation(ctx context.Context, locationID string) ([]*model.Waiter, error) {
	if _, ok := ctx.(mongo.SessionContext); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ReadTimeout)
		defer cancel()
	}

	opts := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"location_id": locationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find waiters: %w", err)
	}
	defer cursor.Close(ctx)

	var waiters []*model.Waiter
	if err = cursor.All(ctx, &waiters); err != nil {
		return nil, fmt.Errorf("failed to decode waiters: %w", err)
	}

	return waiters, nil
}
