package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"tably/internal/locations"
	reservationerrors "tably/internal/reservations/errors"
	"tably/internal/reservations/repository"
	"tably/internal/reservations/validator"
	"tably/internal/slots"
	"tably/internal/tables"
	"tably/internal/waiters"
	"tably/pkg/config"
	apperrors "tably/pkg/errors"
	"tably/pkg/model"
	"tably/pkg/sanitizer"
)

const secretCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type ReservationService interface {
	Create(ctx context.Context, request *model.ReservationRequest) (*model.Confirmation, error)
	GetByID(ctx context.Context, id, requesterEmail string) (*model.Reservation, error)
	Update(ctx context.Context, id, requesterEmail string, updates *model.ReservationUpdate) (*model.Confirmation, error)
	Cancel(ctx context.Context, id, requesterEmail string) error
	SetStatus(ctx context.Context, id, requesterEmail, status string) error
	ListByCustomer(ctx context.Context, customerEmail, requesterEmail string, limit int, offset int64) ([]*model.Reservation, int64, error)
	Worksheet(ctx context.Context, waiterEmail, date string) ([]*model.Reservation, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	holdRepo  repository.SlotHoldRepository
	tables    *tables.Directory
	locations locations.Repository
	waiters   waiters.Repository
	validator *validator.ReservationValidator
	catalog   *slots.Catalog
	events    EventPublisher
	cfg       *config.Config

	// nowFn is swapped in tests to pin the clock.
	nowFn func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	holdRepo repository.SlotHoldRepository,
	tableDir *tables.Directory,
	locationRepo locations.Repository,
	waiterRepo waiters.Repository,
	reservationValidator *validator.ReservationValidator,
	catalog *slots.Catalog,
	events EventPublisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		holdRepo:  holdRepo,
		tables:    tableDir,
		locations: locationRepo,
		waiters:   waiterRepo,
		validator: reservationValidator,
		catalog:   catalog,
		events:    events,
		cfg:       cfg,
		nowFn:     time.Now,
	}
}

func (s *reservationService) Create(ctx context.Context, request *model.ReservationRequest) (*model.Confirmation, error) {
	s.sanitizeRequest(request)

	if err := s.validator.ValidateRequest(request); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	slotID, err := s.resolveSlot(request.TimeFrom, request.TimeTo)
	if err != nil {
		return nil, err
	}

	if err := s.ensureAdvanceBooking(request.Date); err != nil {
		return nil, err
	}

	table, err := s.lookupTable(ctx, request.LocationID, request.TableNumber)
	if err != nil {
		return nil, err
	}
	if table.Capacity < request.Guests {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"Table %s seats %d guests, requested %d",
			table.TableNumber, table.Capacity, request.Guests,
		))
	}

	location, err := s.locations.FindByID(ctx, request.LocationID)
	if err != nil {
		if errors.Is(err, locations.ErrNotFound) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("Location %s does not exist", request.LocationID))
		}
		return nil, apperrors.Internal("Failed to look up location", err)
	}

	secretCode, err := s.generateSecretCode()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate secret code", err)
	}

	reservation := &model.Reservation{
		ID:            uuid.NewString(),
		LocationID:    request.LocationID,
		TableID:       table.ID,
		TableNumber:   table.TableNumber,
		SlotID:        slotID,
		Date:          request.Date,
		CustomerEmail: request.CustomerEmail,
		Guests:        request.Guests,
		Status:        model.StatusReserved,
		SecretCode:    secretCode,
	}

	release, err := s.acquireSlotHold(ctx, reservation)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, reservation, ""); err != nil {
			return err
		}
		if err := s.assignWaiter(sessCtx, reservation); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return s.slotConflict(reservation)
			}
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation", "error", err)
		return nil, err
	}

	s.publishEvent(ctx, EventReservationCreated, reservation)

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"location_id", reservation.LocationID,
		"table_number", reservation.TableNumber,
		"date", reservation.Date,
		"slot_id", reservation.SlotID,
		"waiter_email", reservation.WaiterEmail,
	)

	return s.buildConfirmation(reservation, location.Address), nil
}

func (s *reservationService) GetByID(ctx context.Context, id, requesterEmail string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	// The secret code is the customer's proof of ownership; nobody else
	// gets to read it back.
	if sanitizer.NormalizeEmail(requesterEmail) != reservation.CustomerEmail {
		reservation.SecretCode = ""
	}

	return reservation, nil
}

func (s *reservationService) Update(ctx context.Context, id, requesterEmail string, updates *model.ReservationUpdate) (*model.Confirmation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		return nil, apperrors.Internal("Failed to check reservation existence", err)
	}

	if sanitizer.NormalizeEmail(requesterEmail) != existing.CustomerEmail {
		return nil, apperrors.Forbidden("Only the reservation owner can modify it")
	}
	if existing.Status != model.StatusReserved {
		return nil, apperrors.Forbidden(fmt.Sprintf(
			"Reservation in status %s cannot be modified", existing.Status,
		))
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Reservation update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged, err := s.mergeUpdates(existing, updates)
	if err != nil {
		return nil, err
	}

	// The advance-booking rule gates new dates; a guests- or slot-only
	// change to a reservation already dated today stays editable.
	if merged.Date != existing.Date {
		if err := s.ensureAdvanceBooking(merged.Date); err != nil {
			return nil, err
		}
	}

	table, err := s.lookupTable(ctx, merged.LocationID, merged.TableNumber)
	if err != nil {
		return nil, err
	}
	if table.Capacity < merged.Guests {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"Table %s seats %d guests, requested %d",
			table.TableNumber, table.Capacity, merged.Guests,
		))
	}

	slotMoved := merged.Date != existing.Date || merged.SlotID != existing.SlotID

	if slotMoved {
		release, err := s.acquireSlotHold(ctx, merged)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, merged, merged.ID); err != nil {
			return err
		}
		if slotMoved {
			if err := s.assignWaiter(sessCtx, merged); err != nil {
				return err
			}
		}
		if err := s.repo.Update(sessCtx, id, merged); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return s.slotConflict(merged)
			}
			return apperrors.Internal("Failed to update reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
		return nil, err
	}

	s.publishEvent(ctx, EventReservationUpdated, merged)

	s.cfg.Log.Info("Reservation updated successfully",
		"id", id,
		"date", merged.Date,
		"slot_id", merged.SlotID,
		"waiter_email", merged.WaiterEmail,
	)

	address := ""
	if location, err := s.locations.FindByID(ctx, merged.LocationID); err == nil {
		address = location.Address
	} else {
		s.cfg.Log.Warn("Failed to resolve location address", "location_id", merged.LocationID, "error", err)
	}

	return s.buildConfirmation(merged, address), nil
}

func (s *reservationService) Cancel(ctx context.Context, id, requesterEmail string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Reservation", id)
		}
		return apperrors.Internal("Failed to check reservation existence", err)
	}

	requester := sanitizer.NormalizeEmail(requesterEmail)
	if requester != reservation.CustomerEmail && requester != reservation.WaiterEmail {
		return apperrors.Forbidden("Only the reservation owner or the assigned waiter can cancel it")
	}
	if reservation.Status != model.StatusReserved {
		return apperrors.Forbidden(fmt.Sprintf(
			"Reservation in status %s cannot be cancelled", reservation.Status,
		))
	}

	if err := s.ensureCancellable(reservation); err != nil {
		return err
	}

	if err := s.repo.SetStatus(ctx, id, model.StatusCancelled); err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Reservation", id)
		}
		return apperrors.Internal("Failed to cancel reservation", err)
	}

	reservation.Status = model.StatusCancelled
	s.publishEvent(ctx, EventReservationCancelled, reservation)

	s.cfg.Log.Info("Reservation cancelled successfully", "id", id, "cancelled_by", requester)
	return nil
}

func (s *reservationService) SetStatus(ctx context.Context, id, requesterEmail, status string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Reservation", id)
		}
		return apperrors.Internal("Failed to check reservation existence", err)
	}

	if sanitizer.NormalizeEmail(requesterEmail) != reservation.WaiterEmail {
		return apperrors.Forbidden("Only the assigned waiter can change the reservation status")
	}

	if !validTransition(reservation.Status, status) {
		return apperrors.InvalidInput(fmt.Sprintf(
			"Cannot transition reservation from %s to %s", reservation.Status, status,
		))
	}

	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Reservation", id)
		}
		return apperrors.Internal("Failed to update reservation status", err)
	}

	reservation.Status = status
	s.publishEvent(ctx, EventReservationStatusChanged, reservation)

	s.cfg.Log.Info("Reservation status updated", "id", id, "status", status)
	return nil
}

func (s *reservationService) ListByCustomer(ctx context.Context, customerEmail, requesterEmail string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	email := sanitizer.NormalizeEmail(customerEmail)
	if email == "" {
		return nil, 0, apperrors.InvalidInput("Customer email cannot be empty")
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByCustomer(ctx, email)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count customer reservations", "customer_email", email, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindByCustomer(ctx, email, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list customer reservations", "customer_email", email, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	// Same ownership rule as GetByID: listing someone else's reservations
	// never exposes their secret codes.
	if sanitizer.NormalizeEmail(requesterEmail) != email {
		for _, r := range reservations {
			r.SecretCode = ""
		}
	}

	return reservations, count, nil
}

// Worksheet returns a waiter's non-cancelled reservations for one day, in
// slot order. Secret codes stay in: the waiter checks arriving guests
// against them.
func (s *reservationService) Worksheet(ctx context.Context, waiterEmail, date string) ([]*model.Reservation, error) {
	email := sanitizer.NormalizeEmail(waiterEmail)
	if email == "" {
		return nil, apperrors.InvalidInput("Waiter email cannot be empty")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperrors.InvalidInput("Date must be a calendar date in yyyy-MM-dd format")
	}

	reservations, err := s.repo.FindByWaiterAndDate(ctx, email, date)
	if err != nil {
		s.cfg.Log.Error("Failed to build waiter worksheet", "waiter_email", email, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}

	return reservations, nil
}

// --- Helpers ---

func (s *reservationService) sanitizeRequest(request *model.ReservationRequest) {
	request.LocationID = sanitizer.NormalizeID(request.LocationID)
	request.TableNumber = sanitizer.TrimAndNormalize(request.TableNumber)
	request.Date = sanitizer.TrimAndNormalize(request.Date)
	request.TimeFrom = sanitizer.TrimAndNormalize(request.TimeFrom)
	request.TimeTo = sanitizer.TrimAndNormalize(request.TimeTo)
	request.CustomerEmail = sanitizer.NormalizeEmail(request.CustomerEmail)
}

// resolveSlot maps a requested time window to the single catalog slot it
// must span exactly.
func (s *reservationService) resolveSlot(timeFrom, timeTo string) (string, error) {
	fromID, ok := s.catalog.ResolveByStart(timeFrom)
	if !ok {
		return "", apperrors.InvalidInput(fmt.Sprintf(
			"time_from %q does not match the start of any reservation slot", timeFrom,
		))
	}
	toID, ok := s.catalog.ResolveByEnd(timeTo)
	if !ok {
		return "", apperrors.InvalidInput(fmt.Sprintf(
			"time_to %q does not match the end of any reservation slot", timeTo,
		))
	}
	if fromID != toID {
		return "", apperrors.InvalidInput("time_from and time_to must span exactly one reservation slot")
	}
	return fromID, nil
}

// ensureAdvanceBooking rejects dates earlier than tomorrow in the
// configured timezone.
func (s *reservationService) ensureAdvanceBooking(date string) error {
	loc := s.cfg.Location()
	parsed, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return apperrors.InvalidInput("Date must be a calendar date in yyyy-MM-dd format")
	}

	now := s.nowFn().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if !parsed.After(today) {
		return apperrors.InvalidInput("Reservations must be booked at least one day in advance")
	}
	return nil
}

// ensureCancellable enforces the cancellation lead before slot start.
func (s *reservationService) ensureCancellable(reservation *model.Reservation) error {
	slot, ok := s.catalog.ByID(reservation.SlotID)
	if !ok {
		return apperrors.Internal("Reservation references an unknown slot", nil)
	}

	loc := s.cfg.Location()
	start, err := time.ParseInLocation(model.DateLayout+" 15:04", reservation.Date+" "+slot.Start, loc)
	if err != nil {
		return apperrors.Internal("Reservation has an unparseable date", err)
	}

	deadline := start.Add(-s.cfg.CancellationLead)
	if s.nowFn().In(loc).After(deadline) {
		return apperrors.TooLate(fmt.Sprintf(
			"Reservations can only be cancelled up to %s before the slot starts",
			s.cfg.CancellationLead,
		))
	}
	return nil
}

func (s *reservationService) lookupTable(ctx context.Context, locationID, tableNumber string) (*model.Table, error) {
	tableID, err := s.tables.TableIDFor(ctx, locationID, tableNumber)
	if err != nil {
		if errors.Is(err, tables.ErrNotFound) {
			return nil, apperrors.InvalidInput(fmt.Sprintf(
				"Table %s does not exist at location %s", tableNumber, locationID,
			))
		}
		return nil, apperrors.Internal("Failed to look up table", err)
	}

	capacity, err := s.tables.CapacityOf(ctx, locationID, tableNumber)
	if err != nil {
		if errors.Is(err, tables.ErrNotFound) {
			return nil, apperrors.InvalidInput(fmt.Sprintf(
				"Table %s at location %s has no usable capacity", tableNumber, locationID,
			))
		}
		return nil, apperrors.Internal("Failed to look up table", err)
	}

	return &model.Table{
		ID:          tableID,
		LocationID:  locationID,
		TableNumber: tableNumber,
		Capacity:    capacity,
	}, nil
}

func (s *reservationService) mergeUpdates(existing *model.Reservation, updates *model.ReservationUpdate) (*model.Reservation, error) {
	merged := *existing

	if updates.Date != "" {
		merged.Date = sanitizer.TrimAndNormalize(updates.Date)
	}
	if updates.Guests != nil {
		merged.Guests = *updates.Guests
	}

	if updates.TimeFrom != "" {
		slotID, err := s.resolveSlot(
			sanitizer.TrimAndNormalize(updates.TimeFrom),
			sanitizer.TrimAndNormalize(updates.TimeTo),
		)
		if err != nil {
			return nil, err
		}
		merged.SlotID = slotID
	}

	return &merged, nil
}

func (s *reservationService) verifyNoConflict(ctx context.Context, reservation *model.Reservation, excludeID string) error {
	existing, err := s.repo.FindReservedForSlot(ctx,
		reservation.LocationID, reservation.TableID, reservation.Date, reservation.SlotID, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check slot conflicts", err)
	}
	if len(existing) > 0 {
		return s.slotConflict(reservation)
	}
	return nil
}

func (s *reservationService) slotConflict(reservation *model.Reservation) error {
	display, _ := s.catalog.Display(reservation.SlotID)
	return apperrors.Conflict(fmt.Sprintf(
		"Table %s is already reserved for %s on %s",
		reservation.TableNumber, display, reservation.Date,
	))
}

// assignWaiter picks the least busy waiter for the reservation's slot and
// writes the choice onto the reservation. Loads are recomputed inside the
// caller's transaction so concurrent assignments cannot both land on a
// capped waiter.
func (s *reservationService) assignWaiter(ctx context.Context, reservation *model.Reservation) error {
	roster, err := s.waiters.FindByLocation(ctx, reservation.LocationID)
	if err != nil {
		return apperrors.Internal("Failed to load waiter roster", err)
	}
	if len(roster) == 0 {
		return apperrors.Unprocessable("No waiters are assigned to this location")
	}

	loads := make([]waiters.Load, 0, len(roster))
	for _, w := range roster {
		slotLoad, err := s.repo.CountReservedByWaiterSlot(ctx, w.Email, reservation.Date, reservation.SlotID)
		if err != nil {
			return apperrors.Internal("Failed to compute waiter slot load", err)
		}
		dayLoad, err := s.repo.CountReservedByWaiterAndDate(ctx, w.Email, reservation.Date)
		if err != nil {
			return apperrors.Internal("Failed to compute waiter daily load", err)
		}
		loads = append(loads, waiters.Load{
			Email:    w.Email,
			SlotLoad: int(slotLoad),
			DayLoad:  int(dayLoad),
		})
	}

	email, ok := waiters.PickLeastLoaded(loads, s.cfg.MaxTablesPerWaiter)
	if !ok {
		return apperrors.Unprocessable("All waiters are at capacity for the requested slot")
	}

	reservation.WaiterEmail = email
	return nil
}

// acquireSlotHold takes the advisory hold covering the reservation's slot
// tuple and returns the release func the caller defers.
func (s *reservationService) acquireSlotHold(ctx context.Context, reservation *model.Reservation) (func(), error) {
	err := s.holdRepo.Acquire(ctx, reservation.LocationID, reservation.TableID, reservation.Date, reservation.SlotID)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrSlotHeld) {
			return nil, apperrors.Conflict("This slot is currently being reserved by another request. Please try again.")
		}
		return nil, apperrors.Internal("Failed to acquire slot hold", err)
	}

	release := func() {
		if err := s.holdRepo.Release(ctx, reservation.LocationID, reservation.TableID, reservation.Date, reservation.SlotID); err != nil {
			s.cfg.Log.Warn("Failed to release slot hold",
				"location_id", reservation.LocationID,
				"table_id", reservation.TableID,
				"date", reservation.Date,
				"slot_id", reservation.SlotID,
				"error", err,
			)
		}
	}
	return release, nil
}

func (s *reservationService) generateSecretCode() (string, error) {
	code := make([]byte, s.cfg.SecretCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(secretCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = secretCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func (s *reservationService) buildConfirmation(reservation *model.Reservation, address string) *model.Confirmation {
	display, _ := s.catalog.Display(reservation.SlotID)
	return &model.Confirmation{
		ReservationID:   reservation.ID,
		Status:          reservation.Status,
		LocationAddress: address,
		TableNumber:     reservation.TableNumber,
		Date:            reservation.Date,
		TimeSlot:        display,
		Guests:          reservation.Guests,
		WaiterEmail:     reservation.WaiterEmail,
		SecretCode:      reservation.SecretCode,
	}
}

func (s *reservationService) publishEvent(ctx context.Context, eventType string, reservation *model.Reservation) {
	if err := s.events.Publish(ctx, eventType, reservation); err != nil {
		s.cfg.Log.Warn("Failed to publish reservation event",
			"event_type", eventType,
			"reservation_id", reservation.ID,
			"error", err,
		)
	}
}

func validTransition(from, to string) bool {
	switch from {
	case model.StatusReserved:
		return to == model.StatusInProgress
	case model.StatusInProgress:
		return to == model.StatusFinished
	default:
		return false
	}
}
