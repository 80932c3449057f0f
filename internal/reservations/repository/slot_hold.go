package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	reservationerrors "tably/internal/reservations/errors"
	"tably/pkg/config"
	"tably/pkg/model"
)

const HoldCollectionName = "Reservation_holds"

// SlotHoldRepository implements an advisory hold on a (location, table, date,
// slot) tuple. The hold document's _id encodes the tuple, so a duplicate-key
// error on insert means another request is mid-flight on the same slot. A TTL
// index on expires_at reaps holds orphaned by a crashed process.
type SlotHoldRepository interface {
	Acquire(ctx context.Context, locationID, tableID, date, slotID string) error
	Release(ctx context.Context, locationID, tableID, date, slotID string) error
}

type mongoSlotHoldRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotHoldRepository(cfg *config.Config) SlotHoldRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotHoldRepository{
		cfg:        cfg,
		collection: db.Collection(HoldCollectionName),
	}
}

func HoldID(locationID, tableID, date, slotID string) string {
	return fmt.Sprintf("%s_%s_%s_%s", locationID, tableID, date, slotID)
}

func (r *mongoSlotHoldRepository) Acquire(ctx context.Context, locationID, tableID, date, slotID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	hold := model.SlotHold{
		ID:        HoldID(locationID, tableID, date, slotID),
		ExpiresAt: now.Add(r.cfg.SlotHoldTTL),
		CreatedAt: now,
	}

	if _, err := r.collection.InsertOne(ctx, hold); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reservationerrors.ErrSlotHeld
		}
		return fmt.Errorf("failed to acquire slot hold: %w", err)
	}

	return nil
}

func (r *mongoSlotHoldRepository) Release(ctx context.Context, locationID, tableID, date, slotID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": HoldID(locationID, tableID, date, slotID)}); err != nil {
		return fmt.Errorf("failed to release slot hold: %w", err)
	}

	return nil
}
