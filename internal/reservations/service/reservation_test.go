package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	reservationerrors "tably/internal/reservations/errors"
	"tably/internal/reservations/validator"
	"tably/internal/slots"
	"tably/internal/tables"
	"tably/pkg/config"
	mongotx "tably/pkg/db/mongo"
	apperrors "tably/pkg/errors"
	"tably/pkg/logger"
	"tably/pkg/model"
)

// --- Mocks ---

type mockReservationRepo struct {
	createFn                 func(ctx context.Context, r *model.Reservation) error
	findByIDFn               func(ctx context.Context, id string) (*model.Reservation, error)
	updateFn                 func(ctx context.Context, id string, r *model.Reservation) error
	setStatusFn              func(ctx context.Context, id, status string) error
	findActiveByDateFn       func(ctx context.Context, date string) ([]*model.Reservation, error)
	findReservedForSlotFn    func(ctx context.Context, locationID, tableID, date, slotID, excludeID string) ([]*model.Reservation, error)
	countByWaiterAndDateFn   func(ctx context.Context, waiterEmail, date string) (int64, error)
	countByWaiterSlotFn      func(ctx context.Context, waiterEmail, date, slotID string) (int64, error)
	findByCustomerFn         func(ctx context.Context, customerEmail string, limit int, offset int64) ([]*model.Reservation, error)
	countByCustomerFn        func(ctx context.Context, customerEmail string) (int64, error)
	findByWaiterAndDateFn    func(ctx context.Context, waiterEmail, date string) ([]*model.Reservation, error)
}

func (m *mockReservationRepo) Create(ctx context.Context, r *model.Reservation) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return nil
}

func (m *mockReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, reservationerrors.ErrNotFound
}

func (m *mockReservationRepo) Update(ctx context.Context, id string, r *model.Reservation) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, r)
	}
	return nil
}

func (m *mockReservationRepo) SetStatus(ctx context.Context, id, status string) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockReservationRepo) FindActiveByDate(ctx context.Context, date string) ([]*model.Reservation, error) {
	if m.findActiveByDateFn != nil {
		return m.findActiveByDateFn(ctx, date)
	}
	return nil, nil
}

func (m *mockReservationRepo) FindReservedForSlot(ctx context.Context, locationID, tableID, date, slotID, excludeID string) ([]*model.Reservation, error) {
	if m.findReservedForSlotFn != nil {
		return m.findReservedForSlotFn(ctx, locationID, tableID, date, slotID, excludeID)
	}
	return nil, nil
}

func (m *mockReservationRepo) CountReservedByWaiterAndDate(ctx context.Context, waiterEmail, date string) (int64, error) {
	if m.countByWaiterAndDateFn != nil {
		return m.countByWaiterAndDateFn(ctx, waiterEmail, date)
	}
	return 0, nil
}

func (m *mockReservationRepo) CountReservedByWaiterSlot(ctx context.Context, waiterEmail, date, slotID string) (int64, error) {
	if m.countByWaiterSlotFn != nil {
		return m.countByWaiterSlotFn(ctx, waiterEmail, date, slotID)
	}
	return 0, nil
}

func (m *mockReservationRepo) FindByCustomer(ctx context.Context, customerEmail string, limit int, offset int64) ([]*model.Reservation, error) {
	if m.findByCustomerFn != nil {
		return m.findByCustomerFn(ctx, customerEmail, limit, offset)
	}
	return nil, nil
}

func (m *mockReservationRepo) CountByCustomer(ctx context.Context, customerEmail string) (int64, error) {
	if m.countByCustomerFn != nil {
		return m.countByCustomerFn(ctx, customerEmail)
	}
	return 0, nil
}

func (m *mockReservationRepo) FindByWaiterAndDate(ctx context.Context, waiterEmail, date string) ([]*model.Reservation, error) {
	if m.findByWaiterAndDateFn != nil {
		return m.findByWaiterAndDateFn(ctx, waiterEmail, date)
	}
	return nil, nil
}

func (m *mockReservationRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

type mockHoldRepo struct {
	acquireFn func(ctx context.Context, locationID, tableID, date, slotID string) error
	released  []string
}

func (m *mockHoldRepo) Acquire(ctx context.Context, locationID, tableID, date, slotID string) error {
	if m.acquireFn != nil {
		return m.acquireFn(ctx, locationID, tableID, date, slotID)
	}
	return nil
}

func (m *mockHoldRepo) Release(ctx context.Context, locationID, tableID, date, slotID string) error {
	m.released = append(m.released, locationID+"_"+tableID+"_"+date+"_"+slotID)
	return nil
}

type mockTableRepo struct {
	findByLocationFn func(ctx context.Context, locationID string) ([]*model.Table, error)
	findByNumberFn   func(ctx context.Context, locationID, tableNumber string) (*model.Table, error)
	findByIDFn       func(ctx context.Context, locationID, tableID string) (*model.Table, error)
}

func (m *mockTableRepo) FindByLocation(ctx context.Context, locationID string) ([]*model.Table, error) {
	if m.findByLocationFn != nil {
		return m.findByLocationFn(ctx, locationID)
	}
	return nil, nil
}

func (m *mockTableRepo) FindByNumber(ctx context.Context, locationID, tableNumber string) (*model.Table, error) {
	if m.findByNumberFn != nil {
		return m.findByNumberFn(ctx, locationID, tableNumber)
	}
	return nil, tables.ErrNotFound
}

func (m *mockTableRepo) FindByID(ctx context.Context, locationID, tableID string) (*model.Table, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, locationID, tableID)
	}
	return nil, tables.ErrNotFound
}

type mockLocationRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Location, error)
}

func (m *mockLocationRepo) FindByID(ctx context.Context, id string) (*model.Location, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Location{ID: id, Name: "Main", Address: "1 Main St"}, nil
}

type mockWaiterRepo struct {
	findByLocationFn func(ctx context.Context, locationID string) ([]*model.Waiter, error)
}

func (m *mockWaiterRepo) FindByLocation(ctx context.Context, locationID string) ([]*model.Waiter, error) {
	if m.findByLocationFn != nil {
		return m.findByLocationFn(ctx, locationID)
	}
	return []*model.Waiter{
		{Email: "ana@staff.example.com", LocationID: locationID},
		{Email: "bob@staff.example.com", LocationID: locationID},
	}, nil
}

type recordingPublisher struct {
	events []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ *model.Reservation) error {
	p.events = append(p.events, eventType)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// --- Harness ---

type serviceFixture struct {
	repo      *mockReservationRepo
	holds     *mockHoldRepo
	tables    *mockTableRepo
	locations *mockLocationRepo
	waiters   *mockWaiterRepo
	events    *recordingPublisher
	svc       *reservationService
}

func testConfig() *config.Config {
	return &config.Config{
		MaxTablesPerWaiter: 4,
		CancellationLead:   30 * time.Minute,
		SecretCodeLength:   6,
		Log:                logger.New(logger.Config{Level: "error", Service: "test"}),
	}
}

// fixedNow pins the clock to 2026-09-10 12:00 UTC.
func fixedNow() time.Time {
	return time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	cfg := testConfig()
	f := &serviceFixture{
		repo:  &mockReservationRepo{},
		holds: &mockHoldRepo{},
		tables: &mockTableRepo{
			findByNumberFn: func(_ context.Context, locationID, tableNumber string) (*model.Table, error) {
				return &model.Table{ID: "tbl-1", LocationID: locationID, TableNumber: tableNumber, Capacity: 4}, nil
			},
		},
		locations: &mockLocationRepo{},
		waiters:   &mockWaiterRepo{},
		events:    &recordingPublisher{},
	}

	svc := NewReservationService(
		f.repo,
		f.holds,
		tables.NewDirectory(f.tables, cfg.Log),
		f.locations,
		f.waiters,
		validator.NewReservationValidator(cfg.Log),
		slots.Default(),
		f.events,
		cfg,
	).(*reservationService)
	svc.nowFn = fixedNow

	f.svc = svc
	return f
}

func createRequest() *model.ReservationRequest {
	return &model.ReservationRequest{
		LocationID:    "loc-1",
		TableNumber:   "12",
		Date:          "2026-09-14",
		TimeFrom:      "14:00",
		TimeTo:        "15:30",
		Guests:        2,
		CustomerEmail: "Ana@Example.com",
	}
}

func assertAppErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError with code %s, got %v", wantCode, err)
	}
	if appErr.Code != wantCode {
		t.Fatalf("expected code %s, got %s (%s)", wantCode, appErr.Code, appErr.Message)
	}
}

// --- Create ---

func TestCreateReservation(t *testing.T) {
	f := newFixture(t)

	var created *model.Reservation
	f.repo.createFn = func(_ context.Context, r *model.Reservation) error {
		created = r
		return nil
	}

	confirmation, err := f.svc.Create(context.Background(), createRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected reservation to be persisted")
	}
	if created.SlotID != "3" {
		t.Errorf("expected slot 3, got %s", created.SlotID)
	}
	if created.Status != model.StatusReserved {
		t.Errorf("expected status Reserved, got %s", created.Status)
	}
	if created.CustomerEmail != "ana@example.com" {
		t.Errorf("expected normalized customer email, got %s", created.CustomerEmail)
	}
	if created.WaiterEmail == "" {
		t.Error("expected a waiter to be assigned")
	}
	if len(created.SecretCode) != 6 {
		t.Errorf("expected 6-char secret code, got %q", created.SecretCode)
	}

	if confirmation.TimeSlot != "14:00 - 15:30" {
		t.Errorf("unexpected time slot display: %s", confirmation.TimeSlot)
	}
	if confirmation.LocationAddress != "1 Main St" {
		t.Errorf("unexpected address: %s", confirmation.LocationAddress)
	}
	if confirmation.SecretCode != created.SecretCode {
		t.Error("confirmation must carry the secret code")
	}

	if len(f.events.events) != 1 || f.events.events[0] != EventReservationCreated {
		t.Errorf("expected created event, got %v", f.events.events)
	}
	if len(f.holds.released) != 1 {
		t.Errorf("expected slot hold to be released, got %v", f.holds.released)
	}
}

func TestCreateReservationTwelveHourTimes(t *testing.T) {
	f := newFixture(t)

	var created *model.Reservation
	f.repo.createFn = func(_ context.Context, r *model.Reservation) error {
		created = r
		return nil
	}

	req := createRequest()
	req.TimeFrom = "2:00 p.m."
	req.TimeTo = "3:30 PM"

	if _, err := f.svc.Create(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.SlotID != "3" {
		t.Errorf("expected slot 3, got %s", created.SlotID)
	}
}

func TestCreateReservationSlotMismatch(t *testing.T) {
	f := newFixture(t)

	req := createRequest()
	req.TimeTo = "17:15" // end of slot 4, start of slot 3

	_, err := f.svc.Create(context.Background(), req)
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestCreateReservationUnknownSlotStart(t *testing.T) {
	f := newFixture(t)

	req := createRequest()
	req.TimeFrom = "14:05"

	_, err := f.svc.Create(context.Background(), req)
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestCreateReservationSameDay(t *testing.T) {
	f := newFixture(t)

	req := createRequest()
	req.Date = "2026-09-10" // today under the pinned clock

	_, err := f.svc.Create(context.Background(), req)
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestCreateReservationValidationFailure(t *testing.T) {
	f := newFixture(t)

	req := createRequest()
	req.CustomerEmail = "not-an-email"

	_, err := f.svc.Create(context.Background(), req)
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}

func TestCreateReservationUnknownTable(t *testing.T) {
	f := newFixture(t)
	f.tables.findByNumberFn = func(_ context.Context, _, _ string) (*model.Table, error) {
		return nil, tables.ErrNotFound
	}

	_, err := f.svc.Create(context.Background(), createRequest())
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestCreateReservationTableWithoutCapacity(t *testing.T) {
	f := newFixture(t)
	f.tables.findByNumberFn = func(_ context.Context, locationID, tableNumber string) (*model.Table, error) {
		return &model.Table{ID: "tbl-1", LocationID: locationID, TableNumber: tableNumber}, nil
	}

	_, err := f.svc.Create(context.Background(), createRequest())
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestCreateReservationOverCapacity(t *testing.T) {
	f := newFixture(t)

	req := createRequest()
	req.Guests = 9

	_, err := f.svc.Create(context.Background(), req)
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestCreateReservationConflict(t *testing.T) {
	f := newFixture(t)
	f.repo.findReservedForSlotFn = func(_ context.Context, _, _, _, _, _ string) ([]*model.Reservation, error) {
		return []*model.Reservation{{ID: "other"}}, nil
	}

	_, err := f.svc.Create(context.Background(), createRequest())
	assertAppErrorCode(t, err, "CONFLICT")

	if len(f.events.events) != 0 {
		t.Errorf("no event must be published on conflict, got %v", f.events.events)
	}
}

func TestCreateReservationSlotHeld(t *testing.T) {
	f := newFixture(t)
	f.holds.acquireFn = func(_ context.Context, _, _, _, _ string) error {
		return reservationerrors.ErrSlotHeld
	}

	_, err := f.svc.Create(context.Background(), createRequest())
	assertAppErrorCode(t, err, "CONFLICT")
}

func TestCreateReservationAllWaitersCapped(t *testing.T) {
	f := newFixture(t)
	f.repo.countByWaiterSlotFn = func(_ context.Context, _, _, _ string) (int64, error) {
		return 4, nil
	}

	_, err := f.svc.Create(context.Background(), createRequest())
	assertAppErrorCode(t, err, "UNPROCESSABLE")
}

func TestCreateReservationNoWaiters(t *testing.T) {
	f := newFixture(t)
	f.waiters.findByLocationFn = func(_ context.Context, _ string) ([]*model.Waiter, error) {
		return nil, nil
	}

	_, err := f.svc.Create(context.Background(), createRequest())
	assertAppErrorCode(t, err, "UNPROCESSABLE")
}

func TestCreateReservationBalancesDailyLoad(t *testing.T) {
	f := newFixture(t)
	f.repo.countByWaiterAndDateFn = func(_ context.Context, waiterEmail, _ string) (int64, error) {
		if waiterEmail == "ana@staff.example.com" {
			return 3, nil
		}
		return 1, nil
	}

	var created *model.Reservation
	f.repo.createFn = func(_ context.Context, r *model.Reservation) error {
		created = r
		return nil
	}

	if _, err := f.svc.Create(context.Background(), createRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.WaiterEmail != "bob@staff.example.com" {
		t.Errorf("expected least loaded waiter, got %s", created.WaiterEmail)
	}
}

func TestCreateReservationDuplicateKeyRace(t *testing.T) {
	f := newFixture(t)
	f.repo.createFn = func(_ context.Context, _ *model.Reservation) error {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}

	_, err := f.svc.Create(context.Background(), createRequest())
	assertAppErrorCode(t, err, "CONFLICT")
}

func TestCreateReservationEventFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	if _, err := f.svc.Create(context.Background(), createRequest()); err != nil {
		t.Fatalf("publish failure must not fail the request, got %v", err)
	}
}

// --- GetByID ---

func existingReservation() *model.Reservation {
	return &model.Reservation{
		ID:            "res-1",
		LocationID:    "loc-1",
		TableID:       "tbl-1",
		TableNumber:   "12",
		SlotID:        "3",
		Date:          "2026-09-14",
		CustomerEmail: "ana@example.com",
		WaiterEmail:   "bob@staff.example.com",
		Guests:        2,
		Status:        model.StatusReserved,
		SecretCode:    "XK42Q4",
	}
}

func TestGetByIDRedactsSecretCode(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	owner, err := f.svc.GetByID(context.Background(), "res-1", "Ana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.SecretCode == "" {
		t.Error("owner must see the secret code")
	}

	stranger, err := f.svc.GetByID(context.Background(), "res-1", "someone@else.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stranger.SecretCode != "" {
		t.Error("secret code must be redacted for non-owners")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetByID(context.Background(), "missing", "ana@example.com")
	assertAppErrorCode(t, err, "NOT_FOUND")
}

// --- Update ---

func TestUpdateReservation(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	var updated *model.Reservation
	f.repo.updateFn = func(_ context.Context, _ string, r *model.Reservation) error {
		updated = r
		return nil
	}

	confirmation, err := f.svc.Update(context.Background(), "res-1", "ana@example.com", &model.ReservationUpdate{
		TimeFrom: "19:15",
		TimeTo:   "20:45",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.SlotID != "6" {
		t.Errorf("expected slot 6, got %s", updated.SlotID)
	}
	if confirmation.TimeSlot != "19:15 - 20:45" {
		t.Errorf("unexpected time slot: %s", confirmation.TimeSlot)
	}
	if len(f.holds.released) != 1 {
		t.Errorf("slot move must take and release a hold, got %v", f.holds.released)
	}
	if len(f.events.events) != 1 || f.events.events[0] != EventReservationUpdated {
		t.Errorf("expected updated event, got %v", f.events.events)
	}
}

func TestUpdateGuestsOnlyKeepsSlotAndWaiter(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	var updated *model.Reservation
	f.repo.updateFn = func(_ context.Context, _ string, r *model.Reservation) error {
		updated = r
		return nil
	}

	guests := 3
	if _, err := f.svc.Update(context.Background(), "res-1", "ana@example.com", &model.ReservationUpdate{Guests: &guests}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.SlotID != "3" {
		t.Errorf("slot must be unchanged, got %s", updated.SlotID)
	}
	if updated.WaiterEmail != "bob@staff.example.com" {
		t.Errorf("waiter must be unchanged, got %s", updated.WaiterEmail)
	}
	if updated.Guests != 3 {
		t.Errorf("expected 3 guests, got %d", updated.Guests)
	}
	if len(f.holds.released) != 0 {
		t.Error("no hold is needed when the slot does not move")
	}
}

func TestUpdateGuestsOnlyOnTodaysReservation(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		r := existingReservation()
		// Today under the pinned clock; the advance-booking rule only
		// applies when the date itself changes.
		r.Date = "2026-09-10"
		r.SlotID = "6"
		return r, nil
	}

	guests := 4
	if _, err := f.svc.Update(context.Background(), "res-1", "ana@example.com", &model.ReservationUpdate{Guests: &guests}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateToSameDayDateRejected(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	_, err := f.svc.Update(context.Background(), "res-1", "ana@example.com", &model.ReservationUpdate{Date: "2026-09-10"})
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestUpdateByNonOwner(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	guests := 3
	_, err := f.svc.Update(context.Background(), "res-1", "other@example.com", &model.ReservationUpdate{Guests: &guests})
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func TestUpdateCancelledReservation(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		r := existingReservation()
		r.Status = model.StatusCancelled
		return r, nil
	}

	guests := 3
	_, err := f.svc.Update(context.Background(), "res-1", "ana@example.com", &model.ReservationUpdate{Guests: &guests})
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func TestUpdateConflictExcludesSelf(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	var gotExclude string
	f.repo.findReservedForSlotFn = func(_ context.Context, _, _, _, _, excludeID string) ([]*model.Reservation, error) {
		gotExclude = excludeID
		return nil, nil
	}

	guests := 3
	if _, err := f.svc.Update(context.Background(), "res-1", "ana@example.com", &model.ReservationUpdate{Guests: &guests}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotExclude != "res-1" {
		t.Errorf("conflict check must exclude the reservation itself, got %q", gotExclude)
	}
}

// --- Cancel ---

func TestCancelReservation(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	var gotStatus string
	f.repo.setStatusFn = func(_ context.Context, _, status string) error {
		gotStatus = status
		return nil
	}

	if err := f.svc.Cancel(context.Background(), "res-1", "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotStatus != model.StatusCancelled {
		t.Errorf("expected Cancelled, got %s", gotStatus)
	}
	if len(f.events.events) != 1 || f.events.events[0] != EventReservationCancelled {
		t.Errorf("expected cancelled event, got %v", f.events.events)
	}
}

func TestCancelByAssignedWaiter(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	if err := f.svc.Cancel(context.Background(), "res-1", "bob@staff.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelByStranger(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	err := f.svc.Cancel(context.Background(), "res-1", "stranger@example.com")
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func TestCancelTooLate(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		r := existingReservation()
		// Slot 2 starts 12:15; the clock is pinned to 12:00 on the 10th,
		// past the 11:45 cancellation deadline.
		r.Date = "2026-09-10"
		r.SlotID = "2"
		return r, nil
	}

	err := f.svc.Cancel(context.Background(), "res-1", "ana@example.com")
	assertAppErrorCode(t, err, "TOO_LATE_TO_CANCEL")
}

func TestCancelBeforeLeadWindow(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		r := existingReservation()
		// Slot 5 starts 17:30; at 12:00 the deadline is hours away.
		r.Date = "2026-09-10"
		r.SlotID = "5"
		return r, nil
	}

	if err := f.svc.Cancel(context.Background(), "res-1", "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		r := existingReservation()
		r.Status = model.StatusCancelled
		return r, nil
	}

	err := f.svc.Cancel(context.Background(), "res-1", "ana@example.com")
	assertAppErrorCode(t, err, "FORBIDDEN")
}

// --- SetStatus ---

func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{name: "reserved to in progress", from: model.StatusReserved, to: model.StatusInProgress},
		{name: "in progress to finished", from: model.StatusInProgress, to: model.StatusFinished},
		{name: "reserved to finished", from: model.StatusReserved, to: model.StatusFinished, wantErr: "INVALID_INPUT"},
		{name: "finished is terminal", from: model.StatusFinished, to: model.StatusInProgress, wantErr: "INVALID_INPUT"},
		{name: "cancelled is terminal", from: model.StatusCancelled, to: model.StatusInProgress, wantErr: "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
				r := existingReservation()
				r.Status = tt.from
				return r, nil
			}

			err := f.svc.SetStatus(context.Background(), "res-1", "bob@staff.example.com", tt.to)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			assertAppErrorCode(t, err, tt.wantErr)
		})
	}
}

func TestSetStatusByNonWaiter(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, _ string) (*model.Reservation, error) {
		return existingReservation(), nil
	}

	err := f.svc.SetStatus(context.Background(), "res-1", "ana@example.com", model.StatusInProgress)
	assertAppErrorCode(t, err, "FORBIDDEN")
}

// --- Listings ---

func TestListByCustomer(t *testing.T) {
	f := newFixture(t)
	f.repo.findByCustomerFn = func(_ context.Context, email string, limit int, offset int64) ([]*model.Reservation, error) {
		if email != "ana@example.com" {
			t.Errorf("expected normalized email, got %s", email)
		}
		return []*model.Reservation{existingReservation()}, nil
	}
	f.repo.countByCustomerFn = func(_ context.Context, _ string) (int64, error) {
		return 7, nil
	}

	reservations, count, err := f.svc.ListByCustomer(context.Background(), " Ana@Example.com ", "ana@example.com", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reservations) != 1 {
		t.Errorf("expected 1 reservation, got %d", len(reservations))
	}
	if count != 7 {
		t.Errorf("expected count 7, got %d", count)
	}
	if reservations[0].SecretCode == "" {
		t.Error("the owner's listing must keep the secret codes")
	}
}

func TestListByCustomerRedactsSecretCodesForOthers(t *testing.T) {
	f := newFixture(t)
	f.repo.findByCustomerFn = func(_ context.Context, _ string, _ int, _ int64) ([]*model.Reservation, error) {
		return []*model.Reservation{existingReservation()}, nil
	}

	reservations, _, err := f.svc.ListByCustomer(context.Background(), "ana@example.com", "stranger@example.com", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reservations[0].SecretCode != "" {
		t.Error("secret codes must be redacted when the requester is not the customer")
	}
}

func TestListByCustomerEmptyEmail(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.ListByCustomer(context.Background(), "", "", 10, 0)
	assertAppErrorCode(t, err, "INVALID_INPUT")
}

func TestWorksheet(t *testing.T) {
	f := newFixture(t)
	f.repo.findByWaiterAndDateFn = func(_ context.Context, email, date string) ([]*model.Reservation, error) {
		if email != "bob@staff.example.com" || date != "2026-09-14" {
			t.Errorf("unexpected query: %s %s", email, date)
		}
		return []*model.Reservation{existingReservation()}, nil
	}

	reservations, err := f.svc.Worksheet(context.Background(), "bob@staff.example.com", "2026-09-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reservations) != 1 {
		t.Errorf("expected 1 reservation, got %d", len(reservations))
	}
}

func TestWorksheetBadDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Worksheet(context.Background(), "bob@staff.example.com", "tomorrow")
	assertAppErrorCode(t, err, "INVALID_INPUT")
}
