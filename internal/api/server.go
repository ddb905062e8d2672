package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pbaille/marktwatch/internal/config"
	"github.com/pbaille/marktwatch/internal/domain"
	"github.com/pbaille/marktwatch/internal/logcodec"
)

//go:embed index.html
var indexHTML []byte

// Monitor is what the dashboard needs from the match loop
type Monitor interface {
	Results(filter string) ([]domain.Record, error)
	Search(ctx context.Context, keyword string) ([]domain.Listing, error)
	Reset() error
	SeenCount() int
}

// CycleLister reads recent cycle summaries
type CycleLister interface {
	ListCycles(limit int) ([]domain.CycleRun, error)
}

// Server serves the dashboard page and its JSON API
type Server struct {
	monitor Monitor
	cfg     *config.Holder
	cycles  CycleLister
	addr    string
}

// New creates a new dashboard server. cycles may be nil when history is disabled.
func New(m Monitor, cfg *config.Holder, cycles CycleLister, addr string) *Server {
	return &Server{monitor: m, cfg: cfg, cycles: cycles, addr: addr}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.index)

	// Results log
	mux.HandleFunc("GET /results", s.listResults)
	mux.HandleFunc("POST /reset", s.reset)

	// Configuration
	mux.HandleFunc("GET /config", s.getConfig)
	mux.HandleFunc("POST /config", s.updateConfig)

	// Live search
	mux.HandleFunc("POST /search", s.search)

	mux.HandleFunc("GET /cycles", s.listCycles)
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run starts the HTTP server and stops it when ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	fmt.Printf("Dashboard running on http://%s\n", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve dashboard: %w", err)
	}
	return nil
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"seen":   s.monitor.SeenCount(),
	})
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	records, err := s.monitor.Results(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ConfigView is the configuration as shown to the dashboard
type ConfigView struct {
	config.Config
	APIKey    string `json:"api_key,omitempty"`
	APIKeySet bool   `json:"api_key_set"`
}

func viewOf(cfg config.Config) ConfigView {
	return ConfigView{Config: cfg, APIKeySet: cfg.APIKey != ""}
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.cfg.Snapshot()))
}

// UpdateConfigRequest holds the settings editable from the dashboard.
// Omitted fields keep their current value.
type UpdateConfigRequest struct {
	Postcode             *string `json:"postcode"`
	DistanceKm           *int    `json:"distance_km"`
	CheckIntervalSeconds *int    `json:"check_interval_seconds"`
	MaxListingsPerSearch *int    `json:"max_listings_per_search"`
	ShowBid              *bool   `json:"show_bid"`
	ShowFree             *bool   `json:"show_free"`
	ShowSeeDescription   *bool   `json:"show_see_description"`
}

func (u UpdateConfigRequest) apply(c config.Config) config.Config {
	if u.Postcode != nil {
		c.Postcode = strings.TrimSpace(*u.Postcode)
	}
	if u.DistanceKm != nil {
		c.DistanceKm = *u.DistanceKm
	}
	if u.CheckIntervalSeconds != nil {
		c.CheckIntervalSeconds = *u.CheckIntervalSeconds
	}
	if u.MaxListingsPerSearch != nil {
		c.MaxListingsPerSearch = *u.MaxListingsPerSearch
	}
	if u.ShowBid != nil {
		c.ShowBid = *u.ShowBid
	}
	if u.ShowFree != nil {
		c.ShowFree = *u.ShowFree
	}
	if u.ShowSeeDescription != nil {
		c.ShowSeeDescription = *u.ShowSeeDescription
	}
	return c
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var invalid bool
	next, err := s.cfg.Update(func(c config.Config) (config.Config, error) {
		updated := req.apply(c)
		if err := updated.Validate(); err != nil {
			invalid = true
			return c, err
		}
		return updated, nil
	})
	if err != nil {
		status := http.StatusInternalServerError
		if invalid {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	slog.Info("configuration updated from dashboard", "postcode", next.Postcode, "distance_km", next.DistanceKm)
	writeJSON(w, http.StatusOK, viewOf(next))
}

// SearchRequest is the request body for a live search
type SearchRequest struct {
	Keyword string `json:"keyword"`
}

// SearchHit is a live search result with its display fields
type SearchHit struct {
	domain.Listing
	URL         string `json:"url"`
	PriceText   string `json:"price_text"`
	CategoryTag string `json:"category_tag,omitempty"`
	Distance    string `json:"distance"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	listings, err := s.monitor.Search(r.Context(), req.Keyword)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	base := s.cfg.Snapshot().BaseURL
	hits := make([]SearchHit, len(listings))
	for i, l := range listings {
		hits[i] = SearchHit{
			Listing:     l,
			URL:         l.CanonicalURL(base),
			PriceText:   logcodec.FormatPrice(l.Price),
			CategoryTag: logcodec.CategoryTag(l.Price.Category),
			Distance:    logcodec.FormatDistance(l.Location.DistanceMeters),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keyword":  req.Keyword,
		"listings": hits,
	})
}

func (s *Server) listCycles(w http.ResponseWriter, r *http.Request) {
	if s.cycles == nil {
		writeJSON(w, http.StatusOK, []domain.CycleRun{})
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.cycles.ListCycles(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.CycleRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
