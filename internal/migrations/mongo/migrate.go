package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tably/internal/migrations/mongo/validators"
	"tably/pkg/model"
)

var (
	// uniq_reserved_slot is the authoritative double-booking guard: at most
	// one Reserved document per (location, table, date, slot). Cancelled and
	// finished reservations fall out of the partial filter so the slot can
	// be rebooked.
	ReservationsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "location_id", Value: 1},
				{Key: "table_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "slot_id", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_reserved_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "status", Value: model.StatusReserved},
				}),
		},
		{Keys: bson.D{
			{Key: "customer_email", Value: 1},
			{Key: "date", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "waiter_email", Value: 1},
			{Key: "date", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "date", Value: 1},
			{Key: "status", Value: 1},
		}},
	}

	// Expired holds are reaped by the server's TTL monitor.
	ReservationHoldsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	}

	TablesIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "location_id", Value: 1},
				{Key: "table_number", Value: 1},
			},
			Options: options.Index().SetName("uniq_location_table").SetUnique(true),
		},
	}

	WaitersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_waiter_email").SetUnique(true),
		},
		{Keys: bson.D{{Key: "location_id", Value: 1}}},
	}

	LocationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("Running Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Reservations": {
			Indexes:   ReservationsIndexes,
			Validator: validators.ReservationValidator,
		},
		"Reservation_holds": {
			Indexes: ReservationHoldsIndexes,
		},
		"Tables": {
			Indexes:   TablesIndexes,
			Validator: validators.TableValidator,
		},
		"Waiters": {
			Indexes:   WaitersIndexes,
			Validator: validators.WaiterValidator,
		},
		"Locations": {
			Indexes:   LocationsIndexes,
			Validator: validators.LocationValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts = opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else if validator != nil {
		fmt.Printf("Collection %s already exists, updating validator\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("Ensured indexes for %s\n", name)
	return nil
}
