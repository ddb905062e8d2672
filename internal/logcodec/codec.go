// Package logcodec writes matched listings into the human-readable results
// log and parses that same text back into records.
//
// A record is a block of fixed-label lines opened by a header line
//
//	[2006-01-02 15:04:05] Found: '<keyword>' (max €<ceiling>)
//
// and closed by a rule of 60 '=' characters followed by a blank line. The
// header is the only block anchor. Free text is flattened onto a single line
// when encoded, so no field line can ever start with '['.
package logcodec

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pbaille/marktwatch/internal/domain"
)

// TimeLayout is the wall-clock format of record timestamps
const TimeLayout = "2006-01-02 15:04:05"

// MaxDescription is the number of characters of a description kept in the log
const MaxDescription = 100

const (
	headerAnchor = "] Found: "
	ceilingOpen  = "' (max €"

	titleLabel       = "  Title: "
	priceLabel       = "  Price: "
	locationLabel    = "  Location: "
	linkLabel        = "  Link: "
	imageLabel       = "  Image: "
	descriptionLabel = "  Description: "

	// None stands in for a missing image or description
	None = "none"

	unknown = "unknown"
)

// Rule terminates every record
var Rule = strings.Repeat("=", 60)

// Encode formats r as one log block, including the trailing blank line
func Encode(r domain.Record) string {
	image := flatten(r.ImageURL)
	if image == "" {
		image = None
	}
	description := flatten(r.Description)
	if description == "" {
		description = None
	} else {
		description = Truncate(description, MaxDescription)
	}
	tag := ""
	if r.CategoryTag != "" {
		tag = " [" + flatten(r.CategoryTag) + "]"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s%s'%s%s%s)\n", r.Timestamp.Format(TimeLayout), headerAnchor, flatten(r.Keyword), ceilingOpen, r.CeilingLabel)
	sb.WriteString(titleLabel + flatten(r.Title) + "\n")
	sb.WriteString(priceLabel + flatten(r.Price) + tag + "\n")
	sb.WriteString(locationLabel + flatten(r.City) + " (" + flatten(r.Distance) + ")\n")
	sb.WriteString(linkLabel + flatten(r.URL) + "\n")
	sb.WriteString(imageLabel + image + "\n")
	sb.WriteString(descriptionLabel + description + "\n")
	sb.WriteString(Rule + "\n\n")
	return sb.String()
}

// NewRecord derives the log fields for a listing matched by entry at ts
func NewRecord(ts time.Time, entry domain.WishlistEntry, l domain.Listing, baseURL string) domain.Record {
	city := unknown
	if l.Location.City != nil && *l.Location.City != "" {
		city = *l.Location.City
	}
	var image string
	if len(l.ImageURLs) > 0 {
		image = l.ImageURLs[0]
	}
	var description string
	if l.Description != nil {
		description = *l.Description
	}

	return domain.Record{
		Timestamp:    ts.Truncate(time.Second),
		Keyword:      entry.Keyword,
		CeilingLabel: entry.Ceiling.Label(),
		Title:        l.Title,
		Price:        FormatPrice(l.Price),
		CategoryTag:  CategoryTag(l.Price.Category),
		City:         city,
		Distance:     FormatDistance(l.Location.DistanceMeters),
		URL:          l.CanonicalURL(baseURL),
		ImageURL:     image,
		Description:  description,
	}
}

// FormatPrice renders a price for display
func FormatPrice(p domain.PriceQuantity) string {
	if p.Cents != nil {
		if *p.Cents == 0 {
			return "Free"
		}
		return fmt.Sprintf("€%.2f", float64(*p.Cents)/100)
	}
	switch p.Category {
	case domain.CategoryBid:
		return "Bid"
	case domain.CategoryFree:
		return "Free"
	case domain.CategorySeeDescription:
		return "See description"
	case domain.CategoryReserved:
		return "Reserved"
	case domain.CategoryNegotiable:
		return "To be agreed"
	case domain.CategoryMinBid:
		return "Minimum bid"
	case domain.CategorySwap:
		return "Swap"
	default:
		return "See description/other"
	}
}

// CategoryTag is the bracketed marker appended to the price line, or ""
func CategoryTag(c domain.PriceCategory) string {
	switch c {
	case domain.CategoryBid:
		return "BID"
	case domain.CategoryFree:
		return "FREE"
	case domain.CategoryReserved:
		return "RESERVED"
	case domain.CategoryNegotiable:
		return "NEGOTIABLE"
	case domain.CategoryMinBid:
		return "MIN. BID"
	case domain.CategorySwap:
		return "SWAP"
	default:
		return ""
	}
}

// FormatDistance renders meters as kilometres with one decimal
func FormatDistance(meters *int) string {
	if meters == nil {
		return unknown
	}
	return fmt.Sprintf("%.1f km", float64(*meters)/1000)
}

// Truncate keeps the first n characters of s and marks the cut with "..."
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

var flattener = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func flatten(s string) string {
	return flattener.Replace(s)
}
