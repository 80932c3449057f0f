package service

import (
	"context"
	"time"

	"tably/pkg/kafka"
	"tably/pkg/logger"
	"tably/pkg/model"
)

// Reservation event types emitted to the events topic.
const (
	EventReservationCreated       = "reservation.created"
	EventReservationUpdated       = "reservation.updated"
	EventReservationCancelled     = "reservation.cancelled"
	EventReservationStatusChanged = "reservation.status_changed"

	eventSchemaVersion = "1"
	eventSource        = "reservations"
)

// ReservationEvent is the payload published for every reservation mutation.
type ReservationEvent struct {
	EventType     string    `json:"event_type"`
	ReservationID string    `json:"reservation_id"`
	LocationID    string    `json:"location_id"`
	TableID       string    `json:"table_id"`
	Date          string    `json:"date"`
	SlotID        string    `json:"slot_id"`
	Status        string    `json:"status"`
	WaiterEmail   string    `json:"waiter_email,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher emits reservation lifecycle events. Publishing is best
// effort: failures are logged by the caller and never fail the request that
// produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, reservation *model.Reservation) error
	Close() error
}

type kafkaEventPublisher struct {
	producer *kafka.Producer
}

func NewKafkaEventPublisher(producer *kafka.Producer) EventPublisher {
	return &kafkaEventPublisher{producer: producer}
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, eventType string, reservation *model.Reservation) error {
	event := ReservationEvent{
		EventType:     eventType,
		ReservationID: reservation.ID,
		LocationID:    reservation.LocationID,
		TableID:       reservation.TableID,
		Date:          reservation.Date,
		SlotID:        reservation.SlotID,
		Status:        reservation.Status,
		WaiterEmail:   reservation.WaiterEmail,
		OccurredAt:    time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(reservation.ID).
		WithValue(event).
		WithEventType(eventType).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(eventSource).
		Build()

	return p.producer.Publish(ctx, msg)
}

func (p *kafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// noopEventPublisher stands in when Kafka is disabled.
type noopEventPublisher struct {
	log *logger.Logger
}

func NewNoopEventPublisher(log *logger.Logger) EventPublisher {
	return &noopEventPublisher{log: log}
}

func (p *noopEventPublisher) Publish(_ context.Context, eventType string, reservation *model.Reservation) error {
	p.log.Debug("Event publishing disabled, dropping event",
		"event_type", eventType,
		"reservation_id", reservation.ID,
	)
	return nil
}

func (p *noopEventPublisher) Close() error {
	return nil
}
