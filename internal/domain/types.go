package domain

import (
	"math"
	"strconv"
	"time"
)

// CeilingKind distinguishes the three shapes a price ceiling can take
type CeilingKind int

// The zero kind is not a valid ceiling: a PriceCeiling{} matches nothing.
const (
	CeilingUnset CeilingKind = iota
	Bounded
	Unlimited
	FreeOnly
)

// PriceCeiling is the maximum price a wishlist entry accepts, in whole euros
type PriceCeiling struct {
	Kind  CeilingKind
	Euros int
}

// UnlimitedCeiling accepts any price
func UnlimitedCeiling() PriceCeiling { return PriceCeiling{Kind: Unlimited} }

// FreeOnlyCeiling accepts only free items
func FreeOnlyCeiling() PriceCeiling { return PriceCeiling{Kind: FreeOnly} }

// BoundedCeiling accepts prices up to n euros
func BoundedCeiling(n int) PriceCeiling { return PriceCeiling{Kind: Bounded, Euros: n} }

// Label renders the ceiling the way it appears in the results log
func (c PriceCeiling) Label() string {
	switch c.Kind {
	case Unlimited:
		return "unlimited"
	case FreeOnly:
		return "0"
	case Bounded:
		return strconv.Itoa(c.Euros)
	default:
		return "unset"
	}
}

// Valid reports whether c was built by one of the constructors
func (c PriceCeiling) Valid() bool {
	switch c.Kind {
	case Bounded:
		return c.Euros >= 0
	case Unlimited, FreeOnly:
		return true
	default:
		return false
	}
}

// MinorUnits returns the ceiling in cents, saturating at math.MaxInt64
func (c PriceCeiling) MinorUnits() int64 {
	switch c.Kind {
	case Unlimited:
		return math.MaxInt64
	case FreeOnly, CeilingUnset:
		return 0
	}
	n := int64(c.Euros)
	if n > math.MaxInt64/100 {
		return math.MaxInt64
	}
	return n * 100
}

// WishlistEntry is a keyword the user wants monitored, with its ceiling
type WishlistEntry struct {
	Keyword string       `json:"keyword"`
	Ceiling PriceCeiling `json:"-"`
}

// PriceCategory governs a listing's price when no exact amount is given
type PriceCategory string

const (
	CategoryExact          PriceCategory = "EXACT"
	CategoryBid            PriceCategory = "BID"
	CategoryFree           PriceCategory = "FREE"
	CategorySeeDescription PriceCategory = "SEE_DESCRIPTION"
	CategoryReserved       PriceCategory = "RESERVED"
	CategoryNegotiable     PriceCategory = "NEGOTIABLE"
	CategoryMinBid         PriceCategory = "MIN_BID"
	CategorySwap           PriceCategory = "SWAP"
	CategoryOther          PriceCategory = "OTHER"
)

// ParsePriceCategory maps the remote priceType vocabulary onto PriceCategory
func ParsePriceCategory(priceType string) PriceCategory {
	switch priceType {
	case "FIXED", "EXACT":
		return CategoryExact
	case "BID", "FAST_BID":
		return CategoryBid
	case "FREE":
		return CategoryFree
	case "SEE_DESCRIPTION":
		return CategorySeeDescription
	case "RESERVED":
		return CategoryReserved
	case "NOTK", "NEGOTIABLE":
		return CategoryNegotiable
	case "MIN_BID":
		return CategoryMinBid
	case "SWAP", "EXCHANGE":
		return CategorySwap
	default:
		return CategoryOther
	}
}

// PriceQuantity is a listing's price. Cents set means an exact amount.
type PriceQuantity struct {
	Cents    *int          `json:"cents,omitempty"`
	Category PriceCategory `json:"category"`
}

// Location is where a listing is offered, relative to the search postcode
type Location struct {
	City           *string `json:"city,omitempty"`
	DistanceMeters *int    `json:"distance_meters,omitempty"`
}

// Listing is one candidate item returned by the remote search
type Listing struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Price       PriceQuantity `json:"price"`
	Location    Location      `json:"location"`
	DetailPath  string        `json:"detail_path"`
	ImageURLs   []string      `json:"image_urls,omitempty"`
}

// CanonicalURL joins the remote base with the listing's detail path
func (l Listing) CanonicalURL(base string) string {
	return base + l.DetailPath
}

// Record is one emitted match as written to, and read back from, the results log
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Keyword      string    `json:"keyword"`
	CeilingLabel string    `json:"ceiling"`
	Title        string    `json:"title"`
	Price        string    `json:"price"`
	CategoryTag  string    `json:"category_tag,omitempty"`
	City         string    `json:"city"`
	Distance     string    `json:"distance"`
	URL          string    `json:"link"`
	ImageURL     string    `json:"image,omitempty"`
	Description  string    `json:"description"`
}

// CycleRun summarises one pass over the wishlist
type CycleRun struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Entries    int            `json:"entries"`
	Accepted   int            `json:"accepted"`
	Failures   []CycleFailure `json:"failures,omitempty"`
}

// CycleFailure is a wishlist entry whose search or persistence failed during a cycle
type CycleFailure struct {
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}
