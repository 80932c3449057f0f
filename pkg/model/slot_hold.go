package model

import "time"

// SlotHold is an advisory lock covering one (location, table, date, slot)
// tuple while a create/update pipeline runs its conflict check and write.
// The duplicate-key error on insert is the acquisition primitive; holds
// auto-expire so a crashed request cannot wedge the slot.
type SlotHold struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
