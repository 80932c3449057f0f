package locations

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"tably/pkg/config"
	"tably/pkg/model"
)

const CollectionName = "Locations"

var ErrNotFound = errors.New("location not found")

// Repository exposes the read-only location reference data the core
// consumes; location CRUD belongs to another service.
type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Location, error)
}

type mongoLocationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLocationRepository(cfg *config.Config) Repository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLocationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoLocationRepository) FindByID(ctx context.Context, id string) (*model.Location, error) {
	if _, ok := ctx.(mongo.SessionContext); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ReadTimeout)
		defer cancel()
	}

	var location model.Location
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&location)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find location: %w", err)
	}

	return &location, nil
}
