package tables

import (
	"context"
	"errors"
	"testing"

	"tably/pkg/logger"
	"tably/pkg/model"
)

type mockTableRepository struct {
	findByLocationFunc func(ctx context.Context, locationID string) ([]*model.Table, error)
	findByNumberFunc   func(ctx context.Context, locationID, tableNumber string) (*model.Table, error)
	findByIDFunc       func(ctx context.Context, locationID, tableID string) (*model.Table, error)
}

func (m *mockTableRepository) FindByLocation(ctx context.Context, locationID string) ([]*model.Table, error) {
	if m.findByLocationFunc != nil {
		return m.findByLocationFunc(ctx, locationID)
	}
	return []*model.Table{}, nil
}

func (m *mockTableRepository) FindByNumber(ctx context.Context, locationID, tableNumber string) (*model.Table, error) {
	if m.findByNumberFunc != nil {
		return m.findByNumberFunc(ctx, locationID, tableNumber)
	}
	return nil, ErrNotFound
}

func (m *mockTableRepository) FindByID(ctx context.Context, locationID, tableID string) (*model.Table, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, locationID, tableID)
	}
	return nil, ErrNotFound
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Service: "test"})
}

func TestDirectory_TableIDFor(t *testing.T) {
	repo := &mockTableRepository{
		findByNumberFunc: func(ctx context.Context, locationID, tableNumber string) (*model.Table, error) {
			if locationID == "loc-1" && tableNumber == "12" {
				return &model.Table{ID: "tbl-12", LocationID: "loc-1", TableNumber: "12", Capacity: 4}, nil
			}
			return nil, ErrNotFound
		},
	}
	directory := NewDirectory(repo, testLogger())

	id, err := directory.TableIDFor(context.Background(), "loc-1", "12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "tbl-12" {
		t.Errorf("TableIDFor = %q, want tbl-12", id)
	}

	_, err = directory.TableIDFor(context.Background(), "loc-1", "99")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectory_CapacityOf(t *testing.T) {
	repo := &mockTableRepository{
		findByNumberFunc: func(ctx context.Context, locationID, tableNumber string) (*model.Table, error) {
			switch tableNumber {
			case "12":
				return &model.Table{ID: "tbl-12", TableNumber: "12", Capacity: 6}, nil
			case "13":
				// Document exists but the capacity attribute is missing.
				return &model.Table{ID: "tbl-13", TableNumber: "13"}, nil
			}
			return nil, ErrNotFound
		},
	}
	directory := NewDirectory(repo, testLogger())

	capacity, err := directory.CapacityOf(context.Background(), "loc-1", "12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capacity != 6 {
		t.Errorf("CapacityOf = %d, want 6", capacity)
	}

	// A missing attribute degrades to not-found, never a panic or zero value.
	if _, err := directory.CapacityOf(context.Background(), "loc-1", "13"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing capacity, got %v", err)
	}
}

func TestDirectory_ExistsAtLocation(t *testing.T) {
	storeErr := errors.New("connection reset")
	repo := &mockTableRepository{
		findByNumberFunc: func(ctx context.Context, locationID, tableNumber string) (*model.Table, error) {
			switch tableNumber {
			case "1":
				return &model.Table{ID: "tbl-1", TableNumber: "1", Capacity: 2}, nil
			case "boom":
				return nil, storeErr
			}
			return nil, ErrNotFound
		},
	}
	directory := NewDirectory(repo, testLogger())

	exists, err := directory.ExistsAtLocation(context.Background(), "loc-1", "1")
	if err != nil || !exists {
		t.Errorf("ExistsAtLocation(1) = %v, %v; want true, nil", exists, err)
	}

	exists, err = directory.ExistsAtLocation(context.Background(), "loc-1", "42")
	if err != nil || exists {
		t.Errorf("ExistsAtLocation(42) = %v, %v; want false, nil", exists, err)
	}

	// Store failures surface; they are not conflated with absence.
	if _, err := directory.ExistsAtLocation(context.Background(), "loc-1", "boom"); !errors.Is(err, storeErr) {
		t.Errorf("expected store error to surface, got %v", err)
	}
}

func TestDirectory_TableNumberFor(t *testing.T) {
	repo := &mockTableRepository{
		findByIDFunc: func(ctx context.Context, locationID, tableID string) (*model.Table, error) {
			if tableID == "tbl-12" {
				return &model.Table{ID: "tbl-12", TableNumber: "12", Capacity: 4}, nil
			}
			return nil, ErrNotFound
		},
	}
	directory := NewDirectory(repo, testLogger())

	number, err := directory.TableNumberFor(context.Background(), "loc-1", "tbl-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if number != "12" {
		t.Errorf("TableNumberFor = %q, want 12", number)
	}

	if _, err := directory.TableNumberFor(context.Background(), "loc-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
