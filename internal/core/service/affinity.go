package service

import (
	"sort"

	"github.com/rl1809/putaway/internal/core/catalog"
	"github.com/rl1809/putaway/internal/core/domain"
	"github.com/rl1809/putaway/internal/core/similarity"
)

// CandidateSet is an ordered list of candidate location ids, all produced by
// the same affinity branch.
type CandidateSet struct {
	IDs       []string
	Rationale domain.Rationale
}

// AffinityResolver finds locations already holding a unit's SKU, or a similar
// SKU, so stock consolidates instead of scattering.
type AffinityResolver struct {
	catalog  *catalog.Catalog
	relation similarity.Relation
}

func NewAffinityResolver(cat *catalog.Catalog, rel similarity.Relation) *AffinityResolver {
	if rel == nil {
		rel = similarity.None{}
	}
	return &AffinityResolver{catalog: cat, relation: rel}
}

// Resolve returns same-SKU candidates first, falling back to similar-SKU
// candidates, then to an empty set. Candidates that cannot take the unit's
// quantity are dropped here; pick-order eligibility is the ranker's job.
// Filtering works from a point-in-time read, so the final say stays with
// Commit.
func (r *AffinityResolver) Resolve(unit domain.Unit) CandidateSet {
	var ids []string
	for _, h := range r.catalog.LocationsHolding(unit.SKU) {
		if r.accepts(h.LocationID, unit) {
			ids = append(ids, h.LocationID)
		}
	}
	if len(ids) > 0 {
		return CandidateSet{IDs: ids, Rationale: domain.RationaleSameSKU}
	}

	merged := make(map[string]catalog.Holding)
	for _, sku := range r.similarSKUs(unit.SKU) {
		for _, h := range r.catalog.LocationsHolding(sku) {
			if !r.accepts(h.LocationID, unit) {
				continue
			}
			if prev, seen := merged[h.LocationID]; seen && prev.OldestReceiptAt.Before(h.OldestReceiptAt) {
				continue
			}
			merged[h.LocationID] = h
		}
	}
	if len(merged) == 0 {
		return CandidateSet{Rationale: domain.RationaleEmptySlot}
	}

	holdings := make([]catalog.Holding, 0, len(merged))
	for _, h := range merged {
		holdings = append(holdings, h)
	}
	// Fewer co-located SKUs first, then oldest stock, then id for determinism.
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].DistinctSKUs != holdings[j].DistinctSKUs {
			return holdings[i].DistinctSKUs < holdings[j].DistinctSKUs
		}
		if !holdings[i].OldestReceiptAt.Equal(holdings[j].OldestReceiptAt) {
			return holdings[i].OldestReceiptAt.Before(holdings[j].OldestReceiptAt)
		}
		return holdings[i].LocationID < holdings[j].LocationID
	})

	ids = make([]string, len(holdings))
	for i, h := range holdings {
		ids[i] = h.LocationID
	}
	return CandidateSet{IDs: ids, Rationale: domain.RationaleSimilarSKU}
}

func (r *AffinityResolver) accepts(locationID string, unit domain.Unit) bool {
	loc, err := r.catalog.Find(locationID)
	if err != nil {
		return false
	}
	return loc.CanAccept(unit.SKU, unit.Quantity)
}

func (r *AffinityResolver) similarSKUs(sku string) []string {
	var similar []string
	for _, other := range r.catalog.SKUs() {
		if other != sku && r.relation.Similar(sku, other) {
			similar = append(similar, other)
		}
	}
	return similar
}
