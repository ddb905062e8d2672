// Package config loads the monitor configuration and holds the live snapshot
// shared by the scheduler and the dashboard.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/pbaille/marktwatch/internal/matcher"
)

// DefaultPath is used when neither --config nor $MARKTWATCH_CONFIG is set
const DefaultPath = "marktwatch.json5"

// Config is an immutable value: change it through Holder.Update
type Config struct {
	Postcode             string `json:"postcode"`
	DistanceKm           int    `json:"distance_km"`
	CheckIntervalSeconds int    `json:"check_interval_seconds"`
	MaxListingsPerSearch int    `json:"max_listings_per_search"`
	WishlistFile         string `json:"wishlist_file"`
	ResultsFile          string `json:"results_file"`
	HistoryDB            string `json:"history_db,omitempty"`
	APIKey               string `json:"api_key,omitempty"`
	BaseURL              string `json:"base_url"`
	RequestDelayMs       int    `json:"request_delay_ms"`
	ShowBid              bool   `json:"show_bid"`
	ShowFree             bool   `json:"show_free"`
	ShowSeeDescription   bool   `json:"show_see_description"`
	WebEnabled           bool   `json:"web_enabled"`
	ListenAddr           string `json:"listen_addr"`
	LogLevel             string `json:"log_level"`
	LogFormat            string `json:"log_format"`
}

// Default returns the configuration written on first run
func Default() Config {
	return Config{
		Postcode:             "3032SG",
		DistanceKm:           8,
		CheckIntervalSeconds: 300,
		MaxListingsPerSearch: 50,
		WishlistFile:         "wishlist.txt",
		ResultsFile:          "results.txt",
		HistoryDB:            "marktwatch.db",
		BaseURL:              "https://www.marktplaats.nl",
		RequestDelayMs:       500,
		ShowBid:              true,
		ShowFree:             true,
		ShowSeeDescription:   true,
		WebEnabled:           true,
		ListenAddr:           "127.0.0.1:6600",
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Toggles returns the price visibility switches
func (c Config) Toggles() matcher.Toggles {
	return matcher.Toggles{
		ShowBid:       c.ShowBid,
		ShowFree:      c.ShowFree,
		ShowAmbiguous: c.ShowSeeDescription,
	}
}

// CheckInterval is the pause between scheduled cycles
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// RequestDelay is the courtesy pause between two searches of one cycle
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// Validate checks the fields a cycle depends on
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Postcode) == "" {
		problems = append(problems, "postcode is required")
	}
	if c.DistanceKm <= 0 {
		problems = append(problems, "distance_km must be positive")
	}
	if c.CheckIntervalSeconds <= 0 {
		problems = append(problems, "check_interval_seconds must be positive")
	}
	if c.MaxListingsPerSearch <= 0 {
		problems = append(problems, "max_listings_per_search must be positive")
	}
	if c.RequestDelayMs < 0 {
		problems = append(problems, "request_delay_ms must not be negative")
	}
	if c.WishlistFile == "" || c.ResultsFile == "" {
		problems = append(problems, "wishlist_file and results_file are required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), ext
}

// LocalPath is the override file merged over path, e.g. marktwatch.local.json5
func LocalPath(path string) string {
	prefix, ext := splitExt(path)
	return prefix + ".local" + ext
}

// Load reads path over the defaults and merges the optional local override on top.
// When neither file exists the defaults are written to path.
func Load(path string) (Config, error) {
	out := Default()
	found := false

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return out, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("parse config %s: %w", path, err)
		}
		found = true
	}

	localPath := LocalPath(path)
	localData, err := os.ReadFile(localPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return out, fmt.Errorf("read config: %w", err)
	}
	if len(localData) > 0 {
		// decoding onto a copy keeps keys the local file omits and lets it
		// set false or 0 explicitly
		override := out
		if err := json5.Unmarshal(localData, &override); err != nil {
			return out, fmt.Errorf("parse config %s: %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
			return out, fmt.Errorf("merge config: %w", err)
		}
		slog.Info("merging config with local overrides", "local", localPath)
		found = true
	}

	if !found {
		if err := Save(path, out); err != nil {
			return out, err
		}
		slog.Info("wrote default config", "path", path)
	}

	return out, out.Validate()
}

// Save writes cfg to path as indented JSON, which is valid JSON5
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Holder publishes the current Config. Readers take a snapshot per operation;
// writers replace the whole value under a single lock.
type Holder struct {
	mu   sync.RWMutex
	cfg  Config
	path string
}

// NewHolder wraps cfg; path is the base config file updates are written to
// ("" disables persistence). Only changed fields are written, so values from
// the local override file are never copied into it.
func NewHolder(cfg Config, path string) *Holder {
	return &Holder{cfg: cfg, path: path}
}

// Snapshot returns the current configuration
func (h *Holder) Snapshot() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Update derives a new configuration from the current one and publishes it.
// Nothing changes if fn, validation or persistence fails.
func (h *Holder) Update(fn func(Config) (Config, error)) (Config, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next, err := fn(h.cfg)
	if err != nil {
		return h.cfg, err
	}
	if err := next.Validate(); err != nil {
		return h.cfg, err
	}
	if h.path != "" {
		if err := saveChanges(h.path, h.cfg, next); err != nil {
			return h.cfg, err
		}
	}
	h.cfg = next
	return next, nil
}

// saveChanges writes the fields that differ between prev and next into the
// base file at path. Values that came from the local override stay out of it.
func saveChanges(path string, prev, next Config) error {
	base := map[string]any{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &base); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	before, err := fields(prev)
	if err != nil {
		return err
	}
	after, err := fields(next)
	if err != nil {
		return err
	}
	for k, v := range after {
		if !reflect.DeepEqual(before[k], v) {
			base[k] = v
		}
	}

	out, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func fields(cfg Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return out, nil
}
