package domain

import "time"

// Rationale records which placement branch produced an assignment.
type Rationale string

const (
	RationaleSameSKU    Rationale = "SAME_SKU_MATCH"
	RationaleSimilarSKU Rationale = "SIMILAR_SKU_MATCH"
	RationaleEmptySlot  Rationale = "EMPTY_FIFO_SLOT"
)

// Assignment is the write-once record of a placement decision.
type Assignment struct {
	ID         string
	UnitID     string
	SKU        string
	Quantity   int
	LocationID string
	Rationale  Rationale
	DecidedAt  time.Time
}
