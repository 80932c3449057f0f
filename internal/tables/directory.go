package tables

import (
	"context"
	"errors"

	"tably/pkg/logger"
)

// Directory answers point lookups over the table collection: number-to-id,
// id-to-number, capacity. Lookups that miss report ErrNotFound; they never
// panic on incomplete documents.
type Directory struct {
	repo Repository
	log  *logger.Logger
}

func NewDirectory(repo Repository, log *logger.Logger) *Directory {
	return &Directory{
		repo: repo,
		log:  log,
	}
}

func (d *Directory) TableIDFor(ctx context.Context, locationID, tableNumber string) (string, error) {
	table, err := d.repo.FindByNumber(ctx, locationID, tableNumber)
	if err != nil {
		return "", err
	}
	if table.ID == "" {
		return "", ErrNotFound
	}
	return table.ID, nil
}

func (d *Directory) TableNumberFor(ctx context.Context, locationID, tableID string) (string, error) {
	table, err := d.repo.FindByID(ctx, locationID, tableID)
	if err != nil {
		return "", err
	}
	if table.TableNumber == "" {
		return "", ErrNotFound
	}
	return table.TableNumber, nil
}

func (d *Directory) CapacityOf(ctx context.Context, locationID, tableNumber string) (int, error) {
	table, err := d.repo.FindByNumber(ctx, locationID, tableNumber)
	if err != nil {
		return 0, err
	}
	if table.Capacity <= 0 {
		return 0, ErrNotFound
	}
	return table.Capacity, nil
}

func (d *Directory) ExistsAtLocation(ctx context.Context, locationID, tableNumber string) (bool, error) {
	_, err := d.repo.FindByNumber(ctx, locationID, tableNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
