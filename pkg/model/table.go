package model

// Table is read-only reference data for the core; rows are created by
// location setup, which is out of scope here.
type Table struct {
	ID          string `json:"id" bson:"_id"`
	LocationID  string `json:"location_id" bson:"location_id"`
	TableNumber string `json:"table_number" bson:"table_number"`
	Capacity    int    `json:"capacity" bson:"capacity"`
}

type Location struct {
	ID      string `json:"id" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
}

type Waiter struct {
	ID         string `json:"id,omitempty" bson:"_id,omitempty"`
	Email      string `json:"email" bson:"email"`
	LocationID string `json:"location_id" bson:"location_id"`
	Name       string `json:"name" bson:"name"`
}

// AvailabilityQuery filters the table search; every field is optional.
type AvailabilityQuery struct {
	LocationID string
	Date       string
	Time       string
	Guests     int
}

// TableAvailability is one row of the table-search result: a table and the
// slots still open on the requested date.
type TableAvailability struct {
	LocationID      string   `json:"location_id"`
	LocationAddress string   `json:"location_address"`
	TableNumber     string   `json:"table_number"`
	Capacity        int      `json:"capacity"`
	AvailableSlots  []string `json:"available_slots"`
}
