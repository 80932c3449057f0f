package model

import "time"

// Reservation statuses. Cancelled and Finished are terminal.
const (
	StatusReserved   = "Reserved"
	StatusInProgress = "InProgress"
	StatusFinished   = "Finished"
	StatusCancelled  = "Cancelled"
)

// DateLayout is the only accepted calendar-date format on the wire and in
// the store (yyyy-MM-dd).
const DateLayout = "2006-01-02"

type Reservation struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	LocationID    string    `json:"location_id" bson:"location_id" validate:"required"`
	TableID       string    `json:"table_id" bson:"table_id" validate:"required"`
	TableNumber   string    `json:"table_number" bson:"table_number" validate:"required"`
	SlotID        string    `json:"slot_id" bson:"slot_id" validate:"required"`
	Date          string    `json:"date" bson:"date" validate:"required,reservation_date"`
	CustomerEmail string    `json:"customer_email" bson:"customer_email" validate:"required,email"`
	WaiterEmail   string    `json:"waiter_email" bson:"waiter_email" validate:"omitempty,email"`
	Guests        int       `json:"guests" bson:"guests" validate:"required,min=1"`
	Status        string    `json:"status" bson:"status" validate:"required,oneof=Reserved InProgress Finished Cancelled"`
	SecretCode    string    `json:"secret_code,omitempty" bson:"secret_code,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// ReservationRequest is the create-pipeline input. Times accept both
// 24-hour ("14:00") and 12-hour ("2:00 p.m.") forms.
type ReservationRequest struct {
	LocationID    string `json:"location_id" validate:"required"`
	TableNumber   string `json:"table_number" validate:"required"`
	Date          string `json:"date" validate:"required,reservation_date"`
	TimeFrom      string `json:"time_from" validate:"required"`
	TimeTo        string `json:"time_to" validate:"required"`
	Guests        int    `json:"guests" validate:"required,min=1"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

// ReservationUpdate carries the update-pipeline deltas; empty fields keep
// the current value.
type ReservationUpdate struct {
	Date     string `json:"date,omitempty" validate:"omitempty,reservation_date"`
	TimeFrom string `json:"time_from,omitempty"`
	TimeTo   string `json:"time_to,omitempty"`
	Guests   *int   `json:"guests,omitempty" validate:"omitempty,min=1"`
}

// Confirmation is the caller-facing result of a successful create/update.
type Confirmation struct {
	ReservationID   string `json:"reservation_id"`
	Status          string `json:"status"`
	LocationAddress string `json:"location_address"`
	TableNumber     string `json:"table_number"`
	Date            string `json:"date"`
	TimeSlot        string `json:"time_slot"`
	Guests          int    `json:"guests"`
	WaiterEmail     string `json:"waiter_email,omitempty"`
	SecretCode      string `json:"secret_code,omitempty"`
}
