// Package matcher decides whether a listing's price satisfies a wishlist ceiling.
package matcher

import "github.com/pbaille/marktwatch/internal/domain"

// Toggles control which non-numeric price kinds are shown at all
type Toggles struct {
	ShowBid       bool `json:"show_bid"`
	ShowFree      bool `json:"show_free"`
	ShowAmbiguous bool `json:"show_ambiguous"`
}

// Matches reports whether price is acceptable under ceiling.
//
// Exact prices are compared against the ceiling; a zero price is "free" and
// ignores the ceiling entirely. Categorical prices carry no amount, so a
// bounded ceiling cannot filter them: they pass whenever their visibility
// toggle is on and the ceiling is not free-only.
func Matches(price domain.PriceQuantity, ceiling domain.PriceCeiling, t Toggles) bool {
	if !ceiling.Valid() {
		return false
	}
	if price.Cents != nil {
		cents := int64(*price.Cents)
		switch {
		case cents == 0:
			return t.ShowFree
		case ceiling.Kind == domain.FreeOnly:
			return false
		case ceiling.Kind == domain.Unlimited:
			return true
		default:
			return cents <= ceiling.MinorUnits()
		}
	}

	switch price.Category {
	case domain.CategoryFree:
		return t.ShowFree
	case domain.CategoryBid:
		return t.ShowBid && ceiling.Kind != domain.FreeOnly
	default:
		return t.ShowAmbiguous && ceiling.Kind != domain.FreeOnly
	}
}
