package catalog

import (
	"fmt"

	"upc-catalog/internal/types"
	"upc-catalog/utils"
)

// Merge folds a candidate into the stored record. Descriptive fields take the
// candidate's values; each candidate offer replaces the stored offer of the
// same retailer in place or is appended. Offers from other retailers are kept.
// Neither input is modified.
func Merge(existing, candidate *types.CatalogRecord) *types.CatalogRecord {
	out := existing.Clone()
	out.Title = candidate.Title
	out.Image = candidate.Image
	out.Weight = candidate.Weight
	out.WeightUnit = candidate.WeightUnit

	for _, offer := range candidate.Retailers {
		out.Retailers = mergeOffer(out.Retailers, offer)
	}
	return out
}

func mergeOffer(offers []types.RetailerOffer, offer types.RetailerOffer) []types.RetailerOffer {
	for i := range offers {
		if offers[i].Retailer == offer.Retailer {
			offers[i] = offer
			return offers
		}
	}
	return append(offers, offer)
}

// Patch is a partial update. Nil fields are left unchanged; the id never changes.
type Patch struct {
	Title      *string                `json:"title,omitempty"`
	Image      *string                `json:"image,omitempty"`
	Weight     *float64               `json:"weight,omitempty"`
	WeightUnit *string                `json:"weightUnit,omitempty"`
	Retailers  *[]types.RetailerOffer `json:"retailers,omitempty"`
}

// Apply returns a copy of record with the patch applied
func (p Patch) Apply(record *types.CatalogRecord) *types.CatalogRecord {
	out := record.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Image != nil {
		out.Image = *p.Image
	}
	if p.Weight != nil {
		out.Weight = *p.Weight
	}
	if p.WeightUnit != nil {
		out.WeightUnit = *p.WeightUnit
	}
	if p.Retailers != nil {
		out.Retailers = append([]types.RetailerOffer{}, (*p.Retailers)...)
	}
	return out
}

// validate enforces the identifier rule and one offer per retailer
func validate(record *types.CatalogRecord) error {
	if record == nil || !utils.ValidUPC(record.ID) {
		return ErrInvalidID
	}
	seen := make(map[string]bool, len(record.Retailers))
	for _, offer := range record.Retailers {
		if offer.Retailer == "" {
			return fmt.Errorf("%w: offer without retailer", ErrInvalidRecord)
		}
		if seen[offer.Retailer] {
			return fmt.Errorf("%w: duplicate retailer %q", ErrInvalidRecord, offer.Retailer)
		}
		seen[offer.Retailer] = true
	}
	return nil
}
