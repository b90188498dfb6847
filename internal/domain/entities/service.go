package entities

import (
	"regexp"
	"strings"
)

// Tier is the pricing class attached to a service variant.
type Tier string

const (
	TierK    Tier = "K"
	TierNk   Tier = "Nk"
	TierP    Tier = "P"
	TierNone Tier = ""
)

var tierMarkerRe = regexp.MustCompile(`(?i)\s*-\s*(k|nk|p)\s*$`)

// ServiceRecord represents one priced line item from the hospital
// charge sheet. A record is immutable once loaded; every tier variant
// of a service is its own record with its own code.
type ServiceRecord struct {
	Code            string  `json:"code" db:"code"`
	Description     string  `json:"description" db:"description"`
	Category        string  `json:"category" db:"category"`
	BasePrice       float64 `json:"base_price" db:"base_price"`
	MaxPrice        float64 `json:"max_price" db:"max_price"`
	Tier            Tier    `json:"tier"`
	BaseDescription string  `json:"base_description"`
}

// EffectiveMaxPrice returns the record's max price, falling back to the
// base price when the source data carries no explicit max.
func (r *ServiceRecord) EffectiveMaxPrice() float64 {
	if r.MaxPrice > 0 {
		return r.MaxPrice
	}
	return r.BasePrice
}

// Searchable reports whether the record participates in matching.
func (r *ServiceRecord) Searchable() bool {
	return r.Description != "" && r.BasePrice > 0
}

// TierFromDescription extracts the pricing tier from a stored
// description's trailing marker. Descriptions without a marker belong
// to the unpriced-tier class.
func TierFromDescription(description string) Tier {
	m := tierMarkerRe.FindStringSubmatch(description)
	if m == nil {
		return TierNone
	}
	switch strings.ToLower(m[1]) {
	case "k":
		return TierK
	case "nk":
		return TierNk
	case "p":
		return TierP
	}
	return TierNone
}

// BaseService is the derived view of one underlying service across its
// pricing tiers. Computed on demand, never stored.
type BaseService struct {
	BaseDescription string                  `json:"base_description"`
	Category        string                  `json:"category"`
	Tiers           map[Tier]*ServiceRecord `json:"tiers"`
}

// PriceRange returns the min and max price across the tiers that exist
// for this base service. Absent tiers are skipped, never zero.
func (b *BaseService) PriceRange() (float64, float64) {
	var min, max float64
	first := true
	for _, rec := range b.Tiers {
		if rec.BasePrice <= 0 {
			continue
		}
		if first {
			min, max = rec.BasePrice, rec.EffectiveMaxPrice()
			first = false
			continue
		}
		if rec.BasePrice < min {
			min = rec.BasePrice
		}
		if m := rec.EffectiveMaxPrice(); m > max {
			max = m
		}
	}
	return min, max
}
