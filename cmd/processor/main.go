package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/palemoky/repo-project-id/internal/config"
	"github.com/palemoky/repo-project-id/internal/database"
	"github.com/palemoky/repo-project-id/internal/loader"
	"github.com/palemoky/repo-project-id/internal/logger"
	"github.com/palemoky/repo-project-id/internal/processor"
)

var (
	inputPath  string
	outputDB   string
	workers    int
	configPath string
	reset      bool
	refresh    bool
)

func main() {
	// Initialize logger (always debug mode for processor)
	logger.Init(true)
	defer logger.Sync()

	rootCmd := &cobra.Command{
		Use:   "processor",
		Short: "Repository metadata processor",
		Long:  "Derive project identifiers for crawler metadata and ranking exports and store them in a SQLite registry",
		RunE:  run,
	}

	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "metadata", "JSON file or directory of JSON files with crawler records")
	rootCmd.Flags().StringVarP(&outputDB, "output", "o", "", "Output SQLite database (default: database.path from config)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", -1, "Number of concurrent workers (0 = number of CPUs, default: ingest.workers from config)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml")
	rootCmd.Flags().BoolVar(&reset, "reset", false, "Remove the existing database before ingesting")
	rootCmd.Flags().BoolVar(&refresh, "refresh", false, "Rewrite the crawler fields of projects that are already registered")

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Command execution failed", zap.Error(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if outputDB == "" {
		outputDB = cfg.Database.Path
	}
	if workers < 0 {
		workers = cfg.Ingest.Workers
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Loading crawler records", zap.String("input", inputPath))

	jsonLoader, err := loader.NewJSONLoader(inputPath)
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}

	records, err := jsonLoader.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	logger.Info("Loaded records from JSON files",
		zap.Int("files", len(jsonLoader.Files())),
		zap.Int("count", len(records)),
	)

	result, err := ingest(ctx, cfg, records, jsonLoader.Crawl())
	if result != nil {
		renderTable(os.Stdout, "Ingest", []string{"Outcome", "Records"}, processor.FormatResult(result))
	}
	if err != nil {
		return fmt.Errorf("failed to process database: %w", err)
	}

	logger.Info("Processing complete", zap.String("database", outputDB))

	// Print statistics
	if err := printStatistics(outputDB); err != nil {
		logger.Warn("Failed to print statistics", zap.Error(err))
	}

	return nil
}

func ingest(ctx context.Context, cfg *config.Config, records []loader.RecordWithSource, crawl loader.CrawlSummary) (*processor.Result, error) {
	if reset {
		if err := os.Remove(outputDB); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	// Open database with single connection (safe for data processing)
	db, err := database.Open(outputDB, 1, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	logger.Info("Creating database schema")
	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := database.NewRepository(db)
	proc := processor.NewProcessor(repo, workers)
	proc.SetBatchSize(cfg.Ingest.BatchSize)
	proc.SetRefresh(refresh)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		proc.SetProgressOutput(os.Stderr)
	}

	result, err := proc.Process(ctx, records)
	if err != nil {
		return result, err
	}

	if crawl.Files > 0 {
		logger.Info("Recording crawl",
			zap.Int("crawl_files", crawl.Files),
			zap.Int("languages", len(crawl.Languages)),
			zap.Int64("final_project_id", crawl.FinalProjectID),
		)
		if err := repo.RecordCrawl(crawl.Languages, crawl.FinalProjectID); err != nil {
			return result, err
		}
	}

	// Optimize database
	logger.Info("Optimizing database")
	if err := db.Exec("VACUUM").Error; err != nil {
		logger.Warn("Failed to vacuum database", zap.Error(err))
	}

	if err := db.Exec("ANALYZE").Error; err != nil {
		logger.Warn("Failed to analyze database", zap.Error(err))
	}

	return result, nil
}

func printStatistics(dbPath string) error {
	// Use single connection for statistics (read-only)
	db, err := database.Open(dbPath, 1, 1)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	stats, err := database.NewRepository(db).GetStatistics()
	if err != nil {
		return err
	}

	renderTable(os.Stdout, "Registry", []string{"Metric", "Count"}, [][]string{
		{"Projects", strconv.Itoa(stats.TotalProjects)},
		{"Authors", strconv.Itoa(stats.TotalAuthors)},
		{"Collisions", strconv.Itoa(stats.TotalCollisions)},
	})

	if len(stats.ByLicense) > 0 {
		rows := make([][]string, 0, len(stats.ByLicense))
		for _, l := range stats.ByLicense {
			license := l.License
			if license == "" {
				license = "(none)"
			}
			rows = append(rows, []string{license, strconv.Itoa(l.ProjectCount)})
		}
		renderTable(os.Stdout, "Licenses", []string{"License", "Projects"}, rows)
	}

	if len(stats.ByLanguage) > 0 {
		rows := make([][]string, 0, len(stats.ByLanguage))
		for _, l := range stats.ByLanguage {
			rows = append(rows, []string{l.Name, strconv.Itoa(l.Repositories)})
		}
		renderTable(os.Stdout, "Languages", []string{"Language", "Repositories"}, rows)
	}

	return nil
}

func renderTable(w io.Writer, title string, header []string, rows [][]string) {
	fmt.Fprintf(w, "\n=== %s ===\n", title)
	table := tablewriter.NewWriter(w)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		logger.Warn("Failed to build table", zap.Error(err))
		return
	}
	if err := table.Render(); err != nil {
		logger.Warn("Failed to render table", zap.Error(err))
	}
}
