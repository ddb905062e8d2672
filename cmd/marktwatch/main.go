package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pbaille/marktwatch/internal/api"
	"github.com/pbaille/marktwatch/internal/config"
	"github.com/pbaille/marktwatch/internal/fetcher"
	"github.com/pbaille/marktwatch/internal/logcodec"
	"github.com/pbaille/marktwatch/internal/logging"
	"github.com/pbaille/marktwatch/internal/monitor"
	"github.com/pbaille/marktwatch/internal/scheduler"
	"github.com/pbaille/marktwatch/internal/store"
	"github.com/pbaille/marktwatch/internal/wishlist"
)

var configPath string

func main() {
	defaultConfig := os.Getenv("MARKTWATCH_CONFIG")
	if defaultConfig == "" {
		defaultConfig = config.DefaultPath
	}

	rootCmd := &cobra.Command{
		Use:          "marktwatch",
		Short:        "Watch Marktplaats for wishlist items under a price ceiling",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "config file path")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(resultsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(wishlistCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// app is the wired monitor with everything it persists to
type app struct {
	cfg     *config.Holder
	log     *store.ResultLog
	history *store.History
	monitor *monitor.Monitor
}

func getApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.WishlistFile); errors.Is(err, fs.ErrNotExist) {
		if err := wishlist.WriteExample(cfg.WishlistFile); err != nil {
			return nil, err
		}
		fmt.Printf("Created example wishlist at %s\n", cfg.WishlistFile)
	}

	resultLog := store.NewResultLog(cfg.ResultsFile)
	tracker, err := monitor.LoadSeen(resultLog)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: config.NewHolder(cfg, configPath), log: resultLog}

	opts := monitor.Options{
		Config:   a.cfg,
		Searcher: fetcher.New(fetcher.Options{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey}),
		Log:      resultLog,
		Seen:     tracker,
	}
	if cfg.HistoryDB != "" {
		h, err := store.NewHistory(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		a.history = h
		opts.History = h
	}

	a.monitor, err = monitor.New(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
}

func (a *app) ensureBanner() error {
	cfg := a.cfg.Snapshot()
	return a.log.EnsureBanner(time.Now(), cfg.DistanceKm, cfg.Postcode)
}

func runCmd() *cobra.Command {
	var noWeb bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check the wishlist on an interval and serve the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ensureBanner(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := a.cfg.Snapshot()
			fmt.Println("Marktplaats Monitor")
			fmt.Printf("Watching %s within %dkm of %s, every %s\n", cfg.WishlistFile, cfg.DistanceKm, cfg.Postcode, cfg.CheckInterval())
			fmt.Printf("Results are written to %s (%d already seen)\n", cfg.ResultsFile, a.monitor.SeenCount())

			serveErr := make(chan error, 1)
			if cfg.WebEnabled && !noWeb {
				var cycles api.CycleLister
				if a.history != nil {
					cycles = a.history
				}
				server := api.New(a.monitor, a.cfg, cycles, cfg.ListenAddr)
				go func() { serveErr <- server.Run(ctx) }()
			}

			job := func(ctx context.Context) error {
				_, err := a.monitor.RunCycle(ctx)
				return err
			}

			if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
			}

			sched, err := scheduler.New(cfg.CheckInterval(), job)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
			fmt.Printf("Next check at %s\n", sched.Next().Format("15:04:05"))

			select {
			case <-ctx.Done():
				fmt.Println("\nStopping...")
				return nil
			case err := <-serveErr:
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&noWeb, "no-web", false, "do not start the dashboard")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single check of the wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ensureBanner(); err != nil {
				return err
			}

			run, err := a.monitor.RunCycle(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Checked %d entries: %d new", run.Entries, run.Accepted)
			if len(run.Failures) > 0 {
				fmt.Printf(", %d failed", len(run.Failures))
			}
			fmt.Println()
			for _, f := range run.Failures {
				fmt.Printf("  %s: %s\n", f.Keyword, f.Message)
			}
			return nil
		},
	}
}

func resultsCmd() *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "results",
		Short: "List logged matches, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.monitor.Results(query)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No results yet. Use 'marktwatch check' to look for some.")
				return nil
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Found", "Keyword", "Title", "Price", "Location", "Link"})
			for _, r := range records {
				price := r.Price
				if r.CategoryTag != "" {
					price += " [" + r.CategoryTag + "]"
				}
				t.AppendRow(table.Row{
					r.Timestamp.Format(logcodec.TimeLayout),
					r.Keyword,
					logcodec.Truncate(r.Title, 40),
					price,
					fmt.Sprintf("%s (%s)", r.City, r.Distance),
					r.URL,
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter on title, description or keyword")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of results to show (0 for all)")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search Marktplaats now without a price ceiling",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			listings, err := a.monitor.Search(cmd.Context(), keyword)
			if err != nil {
				return err
			}

			if len(listings) == 0 {
				fmt.Printf("Nothing found for '%s'\n", keyword)
				return nil
			}

			base := a.cfg.Snapshot().BaseURL
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Title", "Price", "Distance", "Link"})
			for _, l := range listings {
				price := logcodec.FormatPrice(l.Price)
				if tag := logcodec.CategoryTag(l.Price.Category); tag != "" {
					price += " [" + tag + "]"
				}
				t.AppendRow(table.Row{
					logcodec.Truncate(l.Title, 40),
					price,
					logcodec.FormatDistance(l.Location.DistanceMeters),
					l.CanonicalURL(base),
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every logged result so listings can match again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes the results log; pass --yes to confirm")
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.monitor.Reset(); err != nil {
				return err
			}
			fmt.Printf("Cleared %s\n", a.log.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent check cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				fmt.Println("Cycle history is disabled (history_db is empty).")
				return nil
			}

			h, err := store.NewHistory(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer h.Close()

			if clearAll {
				if err := h.Clear(); err != nil {
					return err
				}
				fmt.Printf("Cleared cycle history in %s\n", cfg.HistoryDB)
				return nil
			}

			runs, err := h.ListCycles(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No cycles recorded yet.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Cycle", "Started", "Took", "Entries", "New", "Failures"})
			for _, r := range runs {
				t.AppendRow(table.Row{
					r.ID[:8],
					r.StartedAt.Format(logcodec.TimeLayout),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
					r.Entries,
					r.Accepted,
					len(r.Failures),
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of cycles to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all recorded cycles")
	return cmd
}
