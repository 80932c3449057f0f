package service

import (
	"context"
	"time"

	"tably/internal/locations"
	"tably/internal/reservations/repository"
	"tably/internal/slots"
	"tably/internal/tables"
	"tably/pkg/config"
	apperrors "tably/pkg/errors"
	"tably/pkg/model"
	"tably/pkg/sanitizer"
)

type AvailabilityService interface {
	Search(ctx context.Context, query *model.AvailabilityQuery) ([]*model.TableAvailability, error)
}

type availabilityService struct {
	repo      repository.ReservationRepository
	tables    tables.Repository
	locations locations.Repository
	catalog   *slots.Catalog
	cfg       *config.Config
}

func NewAvailabilityService(
	repo repository.ReservationRepository,
	tableRepo tables.Repository,
	locationRepo locations.Repository,
	catalog *slots.Catalog,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		repo:      repo,
		tables:    tableRepo,
		locations: locationRepo,
		catalog:   catalog,
		cfg:       cfg,
	}
}

// Search lists tables with at least one open slot on the requested date.
// Every filter is optional: no location means all locations, no guests
// means any capacity, no time means the whole day. Without a date the
// answer is the slot pattern itself, so booked slots are not subtracted.
//
// The search is a best-effort read: a failing reservation lookup degrades
// to an optimistic answer instead of failing the request, since the create
// pipeline re-checks conflicts authoritatively.
func (s *availabilityService) Search(ctx context.Context, query *model.AvailabilityQuery) ([]*model.TableAvailability, error) {
	query.LocationID = sanitizer.NormalizeID(query.LocationID)
	query.Date = sanitizer.TrimAndNormalize(query.Date)
	query.Time = sanitizer.TrimAndNormalize(query.Time)

	if query.Date != "" {
		if _, err := time.Parse(model.DateLayout, query.Date); err != nil {
			return nil, apperrors.InvalidInput("Date must be a calendar date in yyyy-MM-dd format")
		}
	}
	if query.Guests < 0 {
		return nil, apperrors.InvalidInput("Guests cannot be negative")
	}

	candidates := s.catalog.All()
	if query.Time != "" {
		normalized, err := slots.Normalize(query.Time)
		if err != nil {
			return nil, apperrors.InvalidInput("Time must be a clock time such as 14:00 or 2:00 p.m.")
		}
		candidates = s.catalog.ClosestSlots(normalized)
	}

	tableList, err := s.tables.FindByLocation(ctx, query.LocationID)
	if err != nil {
		s.cfg.Log.Error("Failed to list tables", "location_id", query.LocationID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve tables", err)
	}

	var booked map[string]map[string]bool
	if query.Date != "" {
		booked = s.bookedSlots(ctx, query.Date)
	}

	addresses := make(map[string]string)
	results := make([]*model.TableAvailability, 0, len(tableList))

	for _, table := range tableList {
		if query.Guests > 0 && table.Capacity < query.Guests {
			continue
		}

		open := make([]string, 0, len(candidates))
		for _, slot := range candidates {
			if booked[table.ID][slot.ID] {
				continue
			}
			open = append(open, slot.Display())
		}
		if len(open) == 0 {
			continue
		}

		results = append(results, &model.TableAvailability{
			LocationID:      table.LocationID,
			LocationAddress: s.resolveAddress(ctx, addresses, table.LocationID),
			TableNumber:     table.TableNumber,
			Capacity:        table.Capacity,
			AvailableSlots:  open,
		})
	}

	return results, nil
}

// bookedSlots builds the occupancy map for the date; a failed read returns
// an empty map and a warning.
func (s *availabilityService) bookedSlots(ctx context.Context, date string) map[string]map[string]bool {
	booked := make(map[string]map[string]bool)

	reservations, err := s.repo.FindActiveByDate(ctx, date)
	if err != nil {
		s.cfg.Log.Warn("Failed to load reservations for availability, assuming open slots",
			"date", date,
			"error", err,
		)
		return booked
	}

	for _, r := range reservations {
		if booked[r.TableID] == nil {
			booked[r.TableID] = make(map[string]bool)
		}
		booked[r.TableID][r.SlotID] = true
	}

	return booked
}

// resolveAddress memoizes location lookups per search; a missing location
// yields an empty address rather than a failed search.
func (s *availabilityService) resolveAddress(ctx context.Context, cache map[string]string, locationID string) string {
	if address, ok := cache[locationID]; ok {
		return address
	}

	address := ""
	location, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		s.cfg.Log.Warn("Failed to resolve location address", "location_id", locationID, "error", err)
	} else {
		address = location.Address
	}

	cache[locationID] = address
	return address
}
