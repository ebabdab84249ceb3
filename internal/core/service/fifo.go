package service

import (
	"errors"
	"sort"

	"github.com/rl1809/putaway/internal/core/catalog"
	"github.com/rl1809/putaway/internal/core/domain"
)

var ErrNoCapacity = errors.New("no eligible location")

// FIFORanker picks the single best location from a candidate set, skipping
// any location where the unit would invert pick order. When the affinity
// branch produced nothing usable, it falls back to empty locations.
type FIFORanker struct {
	catalog *catalog.Catalog
}

func NewFIFORanker(cat *catalog.Catalog) *FIFORanker {
	return &FIFORanker{catalog: cat}
}

// Rank returns the top-ranked eligible location for the unit, preferring the
// affinity candidates over empty slots, then most available capacity, then
// proximity to the unit's affinity stock, then front levels, then location
// id. Fails ErrNoCapacity when neither the candidates nor any empty location
// can take the unit.
func (r *FIFORanker) Rank(unit domain.Unit, candidates CandidateSet) (string, domain.Rationale, error) {
	anchors := r.anchors(unit, candidates)
	if id, ok := r.best(unit, candidates.IDs, anchors); ok {
		return id, candidates.Rationale, nil
	}
	if id, ok := r.best(unit, r.catalog.EmptyLocations(), anchors); ok {
		return id, domain.RationaleEmptySlot, nil
	}
	return "", "", ErrNoCapacity
}

// anchors collects the rack coordinates of stock the unit has affinity with.
// Holdings of the unit's own SKU anchor first; when there are none, the
// resolver's similar-stock candidates do.
func (r *FIFORanker) anchors(unit domain.Unit, candidates CandidateSet) map[string]bool {
	var ids []string
	for _, h := range r.catalog.LocationsHolding(unit.SKU) {
		ids = append(ids, h.LocationID)
	}
	if len(ids) == 0 {
		ids = candidates.IDs
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		loc, err := r.catalog.Find(id)
		if err != nil {
			continue
		}
		set[rackKey(loc)] = true
	}
	return set
}

func rackKey(loc *domain.Location) string {
	return loc.Zone + "/" + loc.Aisle + "/" + loc.Rack
}

type ranked struct {
	id        string
	available int
	near      bool
	front     bool
}

func (r *FIFORanker) best(unit domain.Unit, ids []string, anchors map[string]bool) (string, bool) {
	var eligible []ranked
	for _, id := range ids {
		loc, err := r.catalog.Find(id)
		if err != nil {
			continue
		}
		if !loc.CanAccept(unit.SKU, unit.Quantity) {
			continue
		}
		// An older unit behind newer stock would be picked too late; skip the
		// location rather than repair it.
		if !loc.FIFOCompatible(unit.SKU, unit.ReceiptAt) {
			continue
		}
		eligible = append(eligible, ranked{
			id:        id,
			available: loc.AvailableCapacity(),
			near:      anchors[rackKey(loc)],
			front:     loc.Level == "F",
		})
	}
	if len(eligible) == 0 {
		return "", false
	}
	// Most room first, then the rack where the unit's affinity stock already
	// sits, then front levels (picked first on a walk), then id so equal
	// candidates rank the same every run.
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].available != eligible[j].available {
			return eligible[i].available > eligible[j].available
		}
		if eligible[i].near != eligible[j].near {
			return eligible[i].near
		}
		if eligible[i].front != eligible[j].front {
			return eligible[i].front
		}
		return eligible[i].id < eligible[j].id
	})
	return eligible[0].id, true
}
