package fetcher

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pbaille/marktwatch/internal/domain"
)

const sampleResponse = `{
  "listings": [
    {
      "itemId": "m2100000001",
      "title": "Sapphire RX 6600",
      "description": "<p>Works <b>perfectly</b>.</p><p>Pick up only &amp; cash</p>",
      "priceInfo": {"priceCents": 12000, "priceType": "FIXED"},
      "location": {"cityName": "Rotterdam", "distanceMeters": 3200},
      "vipUrl": "/v/computers/m2100000001-sapphire-rx-6600",
      "imageUrls": ["//images.marktplaats.com/api/v1/listing-mp-p/images/a.jpg"]
    },
    {
      "itemId": "m2100000002",
      "title": "Chair",
      "priceInfo": {"priceType": "NOTK"},
      "location": {},
      "vipUrl": "/v/huis/m2100000002-chair"
    }
  ]
}`

func TestSearch(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "secret"})
	listings, err := c.Search(context.Background(), Query{
		Keyword:        "rx 6600",
		PriceToCents:   math.MaxInt64,
		Limit:          50,
		Postcode:       "3032SG",
		DistanceMeters: 8000,
	})
	require.NoError(t, err)

	require.Equal(t, "/lrp/api/search", got.URL.Path)
	q := got.URL.Query()
	require.Equal(t, "rx 6600", q.Get("query"))
	require.Equal(t, "50", q.Get("limit"))
	require.Equal(t, "0", q.Get("offset"))
	require.Equal(t, "3032SG", q.Get("postcode"))
	require.Equal(t, "8000", q.Get("distanceMeters"))
	require.Equal(t, "0", q.Get("priceFrom"))
	require.Equal(t, "9223372036854775807", q.Get("priceTo"))
	require.Equal(t, "secret", got.Header.Get("X-MP-Api-Key"))
	require.Contains(t, got.Header.Get("User-Agent"), "Mozilla/5.0")

	require.Len(t, listings, 2)

	first := listings[0]
	require.Equal(t, "m2100000001", first.ID)
	require.Equal(t, "/v/computers/m2100000001-sapphire-rx-6600", first.DetailPath)
	require.NotNil(t, first.Price.Cents)
	require.Equal(t, 12000, *first.Price.Cents)
	require.Equal(t, domain.CategoryExact, first.Price.Category)
	require.Equal(t, "Rotterdam", *first.Location.City)
	require.Equal(t, 3200, *first.Location.DistanceMeters)
	require.Equal(t, "Works perfectly . Pick up only & cash", *first.Description)
	require.Equal(t, []string{"https://images.marktplaats.com/api/v1/listing-mp-p/images/a.jpg"}, first.ImageURLs)

	second := listings[1]
	require.Nil(t, second.Price.Cents)
	require.Equal(t, domain.CategoryNegotiable, second.Price.Category)
	require.Nil(t, second.Description)
	require.Nil(t, second.Location.City)
	require.Nil(t, second.ImageURLs)
}

func TestSearchNoAPIKeyHeader(t *testing.T) {
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header
		w.Write([]byte(`{"listings": []}`))
	}))
	defer srv.Close()

	listings, err := New(Options{BaseURL: srv.URL}).Search(context.Background(), Query{Keyword: "x"})
	require.NoError(t, err)
	require.Empty(t, listings)
	require.Empty(t, header.Get("X-MP-Api-Key"))
}

func TestSearchErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    error
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusServiceUnavailable)
			},
			kind: domain.ErrTransport,
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"listings": [`))
			},
			kind: domain.ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(Options{BaseURL: srv.URL}).Search(context.Background(), Query{Keyword: "lamp"})
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.kind))

			var ferr *domain.FetchError
			require.True(t, errors.As(err, &ferr))
			require.Equal(t, "lamp", ferr.Keyword)
		})
	}
}

func TestSearchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Options{BaseURL: url}).Search(context.Background(), Query{Keyword: "lamp"})
	require.True(t, errors.Is(err, domain.ErrTransport))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"multi\nline\r\n  text", "multi line text"},
		{"<p>one</p><p>two</p>", "one two"},
		{"a<br>b", "a b"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<script>alert(1)</script>visible", "visible"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PlainText(tt.in), tt.in)
	}
}
