package domain

import "time"

// Unit is a discrete received inventory item awaiting a storage location.
// Units are immutable; a unit moves from unlocated to located exactly once.
type Unit struct {
	ID        string
	SKU       string
	Quantity  int
	ReceiptAt time.Time
	ExpiresAt *time.Time
}

// StockRecord is an already-located unit as reported by the data store.
type StockRecord struct {
	Unit       Unit
	LocationID string
}
