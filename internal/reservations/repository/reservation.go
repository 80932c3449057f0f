package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reservationerrors "tably/internal/reservations/errors"
	"tably/pkg/config"
	mongotx "tably/pkg/db/mongo"
	"tably/pkg/model"
)

const CollectionName = "Reservations"

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	Update(ctx context.Context, id string, reservation *model.Reservation) error
	SetStatus(ctx context.Context, id, status string) error
	FindActiveByDate(ctx context.Context, date string) ([]*model.Reservation, error)
	FindReservedForSlot(ctx context.Context, locationID, tableID, date, slotID, excludeID string) ([]*model.Reservation, error)
	CountReservedByWaiterAndDate(ctx context.Context, waiterEmail, date string) (int64, error)
	CountReservedByWaiterSlot(ctx context.Context, waiterEmail, date, slotID string) (int64, error)
	FindByCustomer(ctx context.Context, customerEmail string, limit int, offset int64) ([]*model.Reservation, error)
	CountByCustomer(ctx context.Context, customerEmail string) (int64, error)
	FindByWaiterAndDate(ctx context.Context, waiterEmail, date string) ([]*model.Reservation, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless the call already runs
// inside a transaction; a SessionContext cannot be wrapped without breaking
// transaction semantics.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	reservation.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Raced past the conflict check into the partial unique index.
			return err
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var reservation model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) Update(ctx context.Context, id string, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"table_id":     reservation.TableID,
			"table_number": reservation.TableNumber,
			"slot_id":      reservation.SlotID,
			"date":         reservation.Date,
			"waiter_email": reservation.WaiterEmail,
			"guests":       reservation.Guests,
			"status":       reservation.Status,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationerrors.ErrNotFound
	}

	return nil
}

func (r *mongoReservationRepository) SetStatus(ctx context.Context, id, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to set reservation status: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationerrors.ErrNotFound
	}

	return nil
}

// FindActiveByDate returns every non-cancelled reservation on the date; the
// availability engine subtracts these from the slot catalog.
func (r *mongoReservationRepository) FindActiveByDate(ctx context.Context, date string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"date":   date,
		"status": bson.M{"$ne": model.StatusCancelled},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations by date: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

// FindReservedForSlot is the conflict primitive: Reserved bookings occupying
// the exact (location, table, date, slot) tuple. excludeID lets the update
// pipeline skip the reservation being moved.
func (r *mongoReservationRepository) FindReservedForSlot(ctx context.Context, locationID, tableID, date, slotID, excludeID string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"location_id": locationID,
		"table_id":    tableID,
		"date":        date,
		"slot_id":     slotID,
		"status":      model.StatusReserved,
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot conflicts: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode conflicting reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) CountReservedByWaiterAndDate(ctx context.Context, waiterEmail, date string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"waiter_email": waiterEmail,
		"date":         date,
		"status":       model.StatusReserved,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count waiter daily load: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) CountReservedByWaiterSlot(ctx context.Context, waiterEmail, date, slotID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"waiter_email": waiterEmail,
		"date":         date,
		"slot_id":      slotID,
		"status":       model.StatusReserved,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count waiter slot load: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) FindByCustomer(ctx context.Context, customerEmail string, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "slot_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"customer_email": customerEmail}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) CountByCustomer(ctx context.Context, customerEmail string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"customer_email": customerEmail})
	if err != nil {
		return 0, fmt.Errorf("failed to count customer reservations: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) FindByWaiterAndDate(ctx context.Context, waiterEmail, date string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"waiter_email": waiterEmail,
		"date":         date,
		"status":       bson.M{"$ne": model.StatusCancelled},
	}

	opts := options.Find().SetSort(bson.D{{Key: "slot_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find waiter reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
