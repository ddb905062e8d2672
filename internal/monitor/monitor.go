// Package monitor runs match cycles over the wishlist and serves the
// results log to the dashboard.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/marktwatch/internal/config"
	"github.com/pbaille/marktwatch/internal/domain"
	"github.com/pbaille/marktwatch/internal/fetcher"
	"github.com/pbaille/marktwatch/internal/logcodec"
	"github.com/pbaille/marktwatch/internal/matcher"
	"github.com/pbaille/marktwatch/internal/seen"
	"github.com/pbaille/marktwatch/internal/store"
	"github.com/pbaille/marktwatch/internal/wishlist"
)

// ErrCycleInProgress is returned when a cycle is requested while one is running
var ErrCycleInProgress = errors.New("cycle already in progress")

// Searcher is the remote search collaborator
type Searcher interface {
	Search(ctx context.Context, q fetcher.Query) ([]domain.Listing, error)
}

// CycleRecorder persists cycle summaries
type CycleRecorder interface {
	RecordCycle(run *domain.CycleRun) error
}

// Options wires a Monitor. Config, Searcher, Log and Seen are required.
type Options struct {
	Config   *config.Holder
	Searcher Searcher
	Log      *store.ResultLog
	Seen     *seen.Tracker
	History  CycleRecorder
	Now      func() time.Time
	Out      io.Writer
}

// Monitor owns the seen set and is the only writer of the results log
type Monitor struct {
	// mu makes each persist step and a reset atomic with respect to each other
	mu      sync.Mutex
	cycleMu sync.Mutex

	cfg     *config.Holder
	search  Searcher
	log     *store.ResultLog
	seen    *seen.Tracker
	history CycleRecorder
	now     func() time.Time
	out     io.Writer
	logger  *slog.Logger
}

// LoadSeen decodes the results log and builds the seen set from it.
// Corrupt blocks are logged and skipped.
func LoadSeen(l *store.ResultLog) (*seen.Tracker, error) {
	records, warnings, err := l.Records()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		slog.Warn("skipping corrupt log record", "path", l.Path(), "line", w.Line, "reason", w.Reason)
	}
	return seen.Rebuild(records), nil
}

// New creates a Monitor
func New(opts Options) (*Monitor, error) {
	if opts.Config == nil || opts.Searcher == nil || opts.Log == nil || opts.Seen == nil {
		return nil, fmt.Errorf("monitor: config, searcher, log and seen are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	return &Monitor{
		cfg:     opts.Config,
		search:  opts.Searcher,
		log:     opts.Log,
		seen:    opts.Seen,
		history: opts.History,
		now:     opts.Now,
		out:     opts.Out,
		logger:  slog.Default().With("component", "monitor"),
	}, nil
}

// SeenCount returns the number of listings already emitted
func (m *Monitor) SeenCount() int {
	return m.seen.Len()
}

func queryFor(cfg config.Config, keyword string, ceiling domain.PriceCeiling) fetcher.Query {
	return fetcher.Query{
		Keyword:        keyword,
		PriceToCents:   ceiling.MinorUnits(),
		Limit:          cfg.MaxListingsPerSearch,
		Postcode:       cfg.Postcode,
		DistanceMeters: cfg.DistanceKm * 1000,
	}
}

// RunCycle makes one pass over the wishlist. Search and storage failures are
// recorded per entry in the returned run; an error is returned only when the
// wishlist cannot be read or ctx is cancelled.
func (m *Monitor) RunCycle(ctx context.Context) (*domain.CycleRun, error) {
	if !m.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer m.cycleMu.Unlock()

	cfg := m.cfg.Snapshot()
	run := &domain.CycleRun{ID: uuid.New().String(), StartedAt: m.now()}
	logger := m.logger.With("cycle", run.ID[:8])

	entries, warnings, err := wishlist.Load(cfg.WishlistFile)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("skipping wishlist line", "line", w.Line, "raw", w.Raw, "reason", w.Reason)
	}
	run.Entries = len(entries)
	if len(entries) == 0 {
		logger.Warn("no valid entries in wishlist", "path", cfg.WishlistFile)
	}

	for i, entry := range entries {
		if i > 0 {
			if err := sleep(ctx, cfg.RequestDelay()); err != nil {
				return m.finish(run, logger), err
			}
		}

		logger.Info("searching", "keyword", entry.Keyword, "max", entry.Ceiling.Label())
		listings, err := m.search.Search(ctx, queryFor(cfg, entry.Keyword, entry.Ceiling))
		if err != nil {
			logger.Warn("search failed", "keyword", entry.Keyword, "err", err)
			run.Failures = append(run.Failures, domain.CycleFailure{Keyword: entry.Keyword, Message: err.Error()})
			continue
		}

		for _, l := range listings {
			accepted, err := m.consider(cfg, entry, l)
			if err != nil {
				logger.Error("could not store match", "keyword", entry.Keyword, "err", err)
				run.Failures = append(run.Failures, domain.CycleFailure{Keyword: entry.Keyword, Message: err.Error()})
				break
			}
			if accepted {
				run.Accepted++
			}
		}
	}

	return m.finish(run, logger), nil
}

func (m *Monitor) finish(run *domain.CycleRun, logger *slog.Logger) *domain.CycleRun {
	run.FinishedAt = m.now()

	if run.Accepted > 0 {
		logger.Info("new results", "count", run.Accepted, "failures", len(run.Failures))
	} else {
		logger.Info("nothing new", "failures", len(run.Failures))
	}

	if m.history != nil {
		if err := m.history.RecordCycle(run); err != nil {
			logger.Warn("could not record cycle history", "err", err)
		}
	}
	return run
}

// consider logs l as a new match for entry unless it was emitted before or
// its price does not fit
func (m *Monitor) consider(cfg config.Config, entry domain.WishlistEntry, l domain.Listing) (bool, error) {
	url := l.CanonicalURL(cfg.BaseURL)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen.Contains(url) {
		return false, nil
	}
	if !matcher.Matches(l.Price, entry.Ceiling, cfg.Toggles()) {
		return false, nil
	}

	rec := logcodec.NewRecord(m.now(), entry, l, cfg.BaseURL)
	if err := m.log.Append(logcodec.Encode(rec)); err != nil {
		return false, err
	}
	m.seen.Mark(url)

	tag := ""
	if rec.CategoryTag != "" {
		tag = " [" + rec.CategoryTag + "]"
	}
	fmt.Fprintf(m.out, "NEW: %s - %s%s - %s\n", rec.Title, rec.Price, tag, rec.URL)
	return true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Results decodes the log and returns the records matching filter, most
// recent first. The filter is a case-insensitive substring of the title,
// description or triggering keyword; "" matches everything.
func (m *Monitor) Results(filter string) ([]domain.Record, error) {
	records, warnings, err := m.log.Records()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		m.logger.Debug("skipping corrupt log record", "line", w.Line, "reason", w.Reason)
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if needle == "" ||
			strings.Contains(strings.ToLower(r.Title), needle) ||
			strings.Contains(strings.ToLower(r.Description), needle) ||
			strings.Contains(strings.ToLower(r.Keyword), needle) {
			out = append(out, r)
		}
	}
	slices.Reverse(out)
	return out, nil
}

// Reset truncates the results log and forgets every emitted listing.
// This is irreversible.
func (m *Monitor) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.log.Truncate(); err != nil {
		return err
	}
	m.seen.Clear()
	m.logger.Warn("results log reset", "path", m.log.Path())
	return nil
}

// Search runs an ad-hoc query with no price ceiling. It bypasses the seen
// set and the results log entirely.
func (m *Monitor) Search(ctx context.Context, keyword string) ([]domain.Listing, error) {
	cfg := m.cfg.Snapshot()
	return m.search.Search(ctx, queryFor(cfg, keyword, domain.UnlimitedCeiling()))
}
