package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pbaille/marktwatch/internal/domain"
)

// DefaultBaseURL is the marketplace host searched and linked to
const DefaultBaseURL = "https://www.marktplaats.nl"

const searchPath = "/lrp/api/search"

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64) AppleWebKit/537.36",
	"Mozilla/5.0 (Linux; Android 14; Pixel 7) AppleWebKit/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/537.36",
	"Mozilla/5.0 (Windows NT 6.1; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 11_6) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36",
	"Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 12_5_1) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Fedora; Linux x86_64) AppleWebKit/537.36",
	"Mozilla/5.0 (Linux; Android 12; OnePlus 9) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14_6) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; CrOS x86_64 15604.45.0) AppleWebKit/537.36",
}

// Options configures a search Client
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Query is one search request
type Query struct {
	Keyword        string
	PriceToCents   int64
	Limit          int
	Postcode       string
	DistanceMeters int
}

// Client queries the marketplace search API
type Client struct {
	http   *resty.Client
	apiKey string
}

// New creates a search Client
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{http: client, apiKey: opts.APIKey}
}

type searchResponse struct {
	Listings []apiListing `json:"listings"`
}

type apiListing struct {
	ItemID      string  `json:"itemId"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	PriceInfo   struct {
		PriceCents *int   `json:"priceCents"`
		PriceType  string `json:"priceType"`
	} `json:"priceInfo"`
	Location struct {
		CityName       *string `json:"cityName"`
		DistanceMeters *int    `json:"distanceMeters"`
	} `json:"location"`
	VipURL    string   `json:"vipUrl"`
	ImageURLs []string `json:"imageUrls"`
}

// Search returns the listings matching q, in the order the API returns them.
// Failures are *domain.FetchError of kind domain.ErrTransport or domain.ErrDecode.
func (c *Client) Search(ctx context.Context, q Query) ([]domain.Listing, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", userAgents[rand.IntN(len(userAgents))]).
		SetQueryParams(map[string]string{
			"limit":          strconv.Itoa(q.Limit),
			"offset":         "0",
			"postcode":       q.Postcode,
			"distanceMeters": strconv.Itoa(q.DistanceMeters),
			"priceFrom":      "0",
			"priceTo":        strconv.FormatInt(q.PriceToCents, 10),
			"query":          q.Keyword,
		})
	if c.apiKey != "" {
		req.SetHeader("X-MP-Api-Key", c.apiKey)
	}

	res, err := req.Get(searchPath)
	if err != nil {
		return nil, &domain.FetchError{Keyword: q.Keyword, Kind: domain.ErrTransport, Err: fmt.Errorf("fetch: %w", err)}
	}
	if !res.IsSuccess() {
		return nil, &domain.FetchError{Keyword: q.Keyword, Kind: domain.ErrTransport, Err: fmt.Errorf("HTTP %d: %s", res.StatusCode(), res.Status())}
	}

	var payload searchResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, &domain.FetchError{Keyword: q.Keyword, Kind: domain.ErrDecode, Err: fmt.Errorf("parse response: %w", err)}
	}

	listings := make([]domain.Listing, 0, len(payload.Listings))
	for _, l := range payload.Listings {
		listings = append(listings, l.toDomain())
	}
	return listings, nil
}

func (l apiListing) toDomain() domain.Listing {
	var description *string
	if l.Description != nil {
		text := PlainText(*l.Description)
		description = &text
	}

	images := make([]string, 0, len(l.ImageURLs))
	for _, u := range l.ImageURLs {
		// the API hands out protocol-relative image links
		if strings.HasPrefix(u, "//") {
			u = "https:" + u
		}
		images = append(images, u)
	}
	if len(images) == 0 {
		images = nil
	}

	return domain.Listing{
		ID:          l.ItemID,
		Title:       l.Title,
		Description: description,
		Price: domain.PriceQuantity{
			Cents:    l.PriceInfo.PriceCents,
			Category: domain.ParsePriceCategory(l.PriceInfo.PriceType),
		},
		Location: domain.Location{
			City:           l.Location.CityName,
			DistanceMeters: l.Location.DistanceMeters,
		},
		DetailPath: l.VipURL,
		ImageURLs:  images,
	}
}
