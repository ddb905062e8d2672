package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pbaille/marktwatch/internal/domain"
)

func cents(n int) *int { return &n }

func TestMatches(t *testing.T) {
	all := Toggles{ShowBid: true, ShowFree: true, ShowAmbiguous: true}
	none := Toggles{}

	tests := []struct {
		name    string
		price   domain.PriceQuantity
		ceiling domain.PriceCeiling
		toggles Toggles
		want    bool
	}{
		{"free hidden", domain.PriceQuantity{Cents: cents(0)}, domain.UnlimitedCeiling(), Toggles{ShowBid: true, ShowAmbiguous: true}, false},
		{"free shown", domain.PriceQuantity{Cents: cents(0)}, domain.BoundedCeiling(1), Toggles{ShowFree: true}, true},
		{"free ignores free-only ceiling", domain.PriceQuantity{Cents: cents(0), Category: domain.CategoryBid}, domain.FreeOnlyCeiling(), Toggles{ShowFree: true}, true},
		{"over bound", domain.PriceQuantity{Cents: cents(15000)}, domain.BoundedCeiling(100), all, false},
		{"under bound", domain.PriceQuantity{Cents: cents(5000)}, domain.BoundedCeiling(100), all, true},
		{"exactly at bound", domain.PriceQuantity{Cents: cents(10000)}, domain.BoundedCeiling(100), none, true},
		{"one cent over bound", domain.PriceQuantity{Cents: cents(10001)}, domain.BoundedCeiling(100), all, false},
		{"priced item never matches free-only", domain.PriceQuantity{Cents: cents(1)}, domain.FreeOnlyCeiling(), all, false},
		{"priced item under unlimited", domain.PriceQuantity{Cents: cents(99999999)}, domain.UnlimitedCeiling(), none, true},
		{"bid hidden", domain.PriceQuantity{Category: domain.CategoryBid}, domain.UnlimitedCeiling(), Toggles{ShowFree: true, ShowAmbiguous: true}, false},
		{"bid hidden bounded", domain.PriceQuantity{Category: domain.CategoryBid}, domain.BoundedCeiling(10), none, false},
		{"bid shown but free-only", domain.PriceQuantity{Category: domain.CategoryBid}, domain.FreeOnlyCeiling(), all, false},
		{"bid shown bounded", domain.PriceQuantity{Category: domain.CategoryBid}, domain.BoundedCeiling(10), Toggles{ShowBid: true}, true},
		{"free category shown", domain.PriceQuantity{Category: domain.CategoryFree}, domain.FreeOnlyCeiling(), Toggles{ShowFree: true}, true},
		{"free category hidden", domain.PriceQuantity{Category: domain.CategoryFree}, domain.UnlimitedCeiling(), none, false},
		{"swap shown unlimited", domain.PriceQuantity{Category: domain.CategorySwap}, domain.UnlimitedCeiling(), Toggles{ShowAmbiguous: true}, true},
		{"swap hidden", domain.PriceQuantity{Category: domain.CategorySwap}, domain.UnlimitedCeiling(), Toggles{ShowBid: true, ShowFree: true}, false},
		{"see description free-only", domain.PriceQuantity{Category: domain.CategorySeeDescription}, domain.FreeOnlyCeiling(), all, false},
		{"reserved bounded", domain.PriceQuantity{Category: domain.CategoryReserved}, domain.BoundedCeiling(5), all, true},
		{"negotiable", domain.PriceQuantity{Category: domain.CategoryNegotiable}, domain.BoundedCeiling(5), all, true},
		{"min bid", domain.PriceQuantity{Category: domain.CategoryMinBid}, domain.UnlimitedCeiling(), all, true},
		{"other", domain.PriceQuantity{Category: domain.CategoryOther}, domain.UnlimitedCeiling(), all, true},
		{"unset ceiling rejects bid", domain.PriceQuantity{Category: domain.CategoryBid}, domain.PriceCeiling{}, all, false},
		{"unset ceiling rejects free", domain.PriceQuantity{Cents: cents(0)}, domain.PriceCeiling{}, all, false},
		{"unset ceiling rejects swap", domain.PriceQuantity{Category: domain.CategorySwap}, domain.PriceCeiling{}, all, false},
		{"negative bound rejects", domain.PriceQuantity{Category: domain.CategoryBid}, domain.BoundedCeiling(-5), all, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Matches(tt.price, tt.ceiling, tt.toggles))
		})
	}
}
