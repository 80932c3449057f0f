package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrSlotHeld = errors.New("slot is held by another request")
)
