package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/apiserver"
	"github.com/TobiSchelling/g2bdash/internal/classify"
	"github.com/TobiSchelling/g2bdash/internal/collect"
	"github.com/TobiSchelling/g2bdash/internal/config"
	"github.com/TobiSchelling/g2bdash/internal/dashboard"
	"github.com/TobiSchelling/g2bdash/internal/database"
	"github.com/TobiSchelling/g2bdash/internal/fetch"
	"github.com/TobiSchelling/g2bdash/internal/format"
	"github.com/TobiSchelling/g2bdash/internal/pipeline"
	"github.com/TobiSchelling/g2bdash/internal/procurement"
	"github.com/TobiSchelling/g2bdash/internal/scheduler"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "g2bdash",
	Short:   "Public procurement (G2B) dashboard",
	Long:    "g2bdash collects bid notices, awards and order plans into a local backend and browses them from the terminal or a web dashboard.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			if configPath != "" {
				return err
			}
			// Without any config file the embedded defaults apply.
			cfg, err = config.Default()
			if err != nil {
				return fmt.Errorf("loading default config: %w", err)
			}
			return nil
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backendCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("g2bdash", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/g2bdash/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the backend URL, feeds and the open API key variable.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout())
		defer cancel()

		client := newClient()
		summary, err := client.FetchSummary(ctx)
		if err != nil {
			return fmt.Errorf("getting summary: %w", err)
		}

		fmt.Printf("Backend: %s\n\n", client.BaseURL())
		fmt.Printf("  Bid notices:  %s\n", format.FormatCount(summary.TotalBiddings))
		fmt.Printf("  Awards:       %s\n", format.FormatCount(summary.TotalAwards))
		fmt.Printf("  Order plans:  %s\n", format.FormatCount(summary.TotalOrderPlans))
		fmt.Printf("  Total budget: %s\n", format.FormatWon(summary.TotalBudget))
		fmt.Printf("  Awarded:      %s\n", format.FormatWon(summary.TotalAwardAmount))
		return nil
	},
}

// --- ingest commands ---

var collectDays int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect listings from configured sources into the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Collecting listings from sources...")
		collector := collect.NewCollector(cfg, db, collectDays)
		result := collector.Collect()

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New records: %d\n", result.New)
		fmt.Printf("  Updated:     %d\n", result.Updated)
		fmt.Printf("  Failed:      %d\n", result.Failed)

		if len(result.Kinds) > 0 {
			fmt.Println("\nRecords by kind:")
			kinds := make([]procurement.Kind, 0, len(result.Kinds))
			for k := range result.Kinds {
				kinds = append(kinds, k)
			}
			sort.Slice(kinds, func(i, j int) bool { return result.Kinds[kinds[i]] > result.Kinds[kinds[j]] })
			for _, k := range kinds {
				fmt.Printf("  %s: %d\n", k.Label(), result.Kinds[k])
			}
		}
		return nil
	},
}

var fetchLimit int

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch missing notice descriptions from their detail pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fetcher := fetch.NewDescriptionFetcher(db, cfg.API.Timeout())
		result := fetcher.FetchMissing(fetchLimit)
		fmt.Printf("Fetched %d descriptions, %d failed, %d skipped\n", result.Fetched, result.Failed, result.Skipped)
		return nil
	},
}

var classifyLimit int

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Assign categories, tags and competition levels to new notices",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result := classify.NewClassifier(db).ClassifyPending(classifyLimit)
		fmt.Printf("Classified %d notices, %d errors\n", result.Processed, result.Errors)
		cats := make([]string, 0, len(result.Categories))
		for c := range result.Categories {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Printf("  %s: %d\n", c, result.Categories[c])
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectDays, "days", 1, "Lookback window (days)")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "Maximum descriptions to fetch (0 = all)")
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "Maximum notices to classify (0 = all)")
}

// --- run command ---

var (
	dryRun    bool
	daysBack  int
	skipFetch bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingest pipeline: collect -> fetch -> classify",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(pipeline.Options{
				DaysBack:     daysBack,
				FetchTimeout: cfg.API.Timeout(),
				SkipFetch:    skipFetch,
			})
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'g2bdash backend' and 'g2bdash serve' to browse the data.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().IntVar(&daysBack, "days-back", 1, "Lookback window (days)")
	runCmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "Skip fetching notice descriptions")
}

// --- serve commands ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting dashboard at http://localhost:%d (backend %s)\n", port, cfg.API.BaseURL)
		fmt.Println("Press Ctrl+C to stop")
		return dashboard.Serve(newClient(), dashboard.Options{
			PageSize:  cfg.API.PageSize,
			DailyDays: cfg.Dashboard.DailyDays,
			TopN:      cfg.Dashboard.TopN,
		}, port)
	},
}

var (
	backendPort int
	noSchedule  bool
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Serve the local database over the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Backend.Port
		if cmd.Flags().Changed("port") {
			port = backendPort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := apiserver.NewServer(db, cfg.Backend.AllowOrigins)
		errc := make(chan error, 1)
		go func() {
			errc <- srv.Start(fmt.Sprintf("127.0.0.1:%d", port))
		}()
		fmt.Printf("Backend listening on http://localhost:%d\n", port)

		schedDone := make(chan struct{})
		if sc := cfg.Backend.Schedule; sc.Enabled && !noSchedule {
			sched := scheduler.New(pipeline.New(cfg, db), scheduler.Config{
				Interval:     sc.Interval(),
				DaysBack:     sc.DaysBack,
				FetchTimeout: cfg.API.Timeout(),
				RunOnStart:   true,
			})
			go func() {
				defer close(schedDone)
				sched.Run(ctx.Done())
			}()
		} else {
			close(schedDone)
		}
		// The database stays open until a running cycle has finished.
		defer func() { <-schedDone }()

		select {
		case err := <-errc:
			stop()
			return err
		case <-ctx.Done():
		}

		log.Println("Shutting down backend...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutting down: %w", err)
		}
		return <-errc
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to run the dashboard on")
	backendCmd.Flags().IntVarP(&backendPort, "port", "p", 8000, "Port to run the backend on")
	backendCmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "Do not run the ingest pipeline on a timer")
}

func newClient() *procurement.Client {
	p := cfg.API.Paths
	return procurement.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), procurement.WithPaths(procurement.Paths{
		BidNotices:   p.BidNotices,
		Awards:       p.Awards,
		OrderPlans:   p.OrderPlans,
		Summary:      p.Summary,
		Daily:        p.Daily,
		ByType:       p.ByType,
		TopAgencies:  p.TopAgencies,
		TopCompanies: p.TopCompanies,
	}))
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DBPath())
}
