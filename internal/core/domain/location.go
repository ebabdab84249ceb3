package domain

import "time"

type CapacityMode string

const (
	// CapacityModeQuantity bounds the total on-hand quantity at a location.
	CapacityModeQuantity CapacityMode = "quantity"
	// CapacityModeSKUs bounds the number of distinct SKUs at a location.
	CapacityModeSKUs CapacityMode = "skus"
)

// Occupant summarizes one SKU's stock at a location.
type Occupant struct {
	Quantity        int
	OldestReceiptAt time.Time
}

// Location is a physical storage slot. Zone/Aisle/Rack/Level mirror the
// coordinates of the warehouse reports; they inform ranking only.
type Location struct {
	ID        string
	Zone      string
	Aisle     string
	Rack      string
	Level     string
	Capacity  int
	Mode      CapacityMode
	Occupants map[string]Occupant
	Version   int
}

// OnHand returns the total quantity stored at the location.
func (l *Location) OnHand() int {
	total := 0
	for _, occ := range l.Occupants {
		total += occ.Quantity
	}
	return total
}

// DistinctSKUs returns the number of distinct SKUs stored at the location.
func (l *Location) DistinctSKUs() int {
	return len(l.Occupants)
}

// IsEmpty reports whether the location holds no stock at all.
func (l *Location) IsEmpty() bool {
	return len(l.Occupants) == 0
}

// AvailableCapacity returns the remaining capacity under the location's mode:
// remaining quantity in quantity mode, remaining SKU slots in SKU mode.
func (l *Location) AvailableCapacity() int {
	switch l.Mode {
	case CapacityModeSKUs:
		return l.Capacity - l.DistinctSKUs()
	default:
		return l.Capacity - l.OnHand()
	}
}

// WithinCapacity reports whether the location's current contents respect its
// capacity mode.
func (l *Location) WithinCapacity() bool {
	switch l.Mode {
	case CapacityModeSKUs:
		return l.DistinctSKUs() <= l.Capacity
	default:
		return l.OnHand() <= l.Capacity
	}
}

// CanAccept reports whether adding qty units of sku would keep the location
// within capacity.
func (l *Location) CanAccept(sku string, qty int) bool {
	switch l.Mode {
	case CapacityModeSKUs:
		if _, held := l.Occupants[sku]; held {
			return true
		}
		return l.DistinctSKUs() < l.Capacity
	default:
		return l.OnHand()+qty <= l.Capacity
	}
}

// FIFOCompatible reports whether storing a unit of sku received at receiptAt
// preserves pick order. A location already holding the SKU with a newer
// recorded oldest receipt would be picked before the incoming older unit, so
// it is incompatible.
func (l *Location) FIFOCompatible(sku string, receiptAt time.Time) bool {
	occ, held := l.Occupants[sku]
	if !held {
		return true
	}
	return !receiptAt.Before(occ.OldestReceiptAt)
}

// Clone returns a deep copy safe to hand to callers.
func (l *Location) Clone() *Location {
	cp := *l
	cp.Occupants = make(map[string]Occupant, len(l.Occupants))
	for sku, occ := range l.Occupants {
		cp.Occupants[sku] = occ
	}
	return &cp
}
