package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/kozaktomas/facial-attendance/internal/dashboard"
	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/kozaktomas/facial-attendance/internal/database/mariadb"
	"github.com/kozaktomas/facial-attendance/internal/database/postgres"
	"github.com/kozaktomas/facial-attendance/internal/database/sqlite"
	"github.com/kozaktomas/facial-attendance/internal/extractor"
	"github.com/kozaktomas/facial-attendance/internal/ledger"
	"github.com/kozaktomas/facial-attendance/internal/recognition"
)

// app holds the storage backends and the service shared by all commands.
type app struct {
	cfg       *config.Config
	store     database.Store
	directory *mariadb.Pool
	service   *attendance.Service
}

// openStore opens the backend selected by DATABASE_URL.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if sqlite.IsURL(cfg.Database.URL) {
		fmt.Printf("Using SQLite backend\n")
		return sqlite.Open(ctx, cfg.Database.URL)
	}
	fmt.Printf("Connecting to PostgreSQL database...\n")
	return postgres.Open(ctx, &cfg.Database)
}

// newApp opens storage, loads the enrolled identities and wires the service.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store}

	var directory database.StudentDirectory = store
	if cfg.Directory.DatabaseURL != "" {
		pool, err := mariadb.NewPool(cfg.Directory.DatabaseURL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to student directory: %w", err)
		}
		a.directory = pool
		directory = pool
		fmt.Printf("Using external student directory (read-only)\n")
	}

	identities := recognition.NewStore(store, cfg.Recognition.EmbeddingDim, cfg.Database.QueryTimeout)
	n, err := identities.Load(ctx)
	if err != nil {
		// matching reports no identities until a reload succeeds
		fmt.Printf("Warning: %v\n", err)
	} else {
		fmt.Printf("Loaded %d enrolled identities (dim %d)\n", n, cfg.Recognition.EmbeddingDim)
	}

	matcher, err := recognition.NewMatcher(cfg.Recognition.Threshold)
	if err != nil {
		a.Close()
		return nil, err
	}

	l := ledger.New(store, store, directory, ledger.Options{
		Location:    cfg.Ledger.Location(),
		DefaultMode: cfg.Ledger.DefaultMode,
		Timeout:     cfg.Database.QueryTimeout,
		LockTimeout: cfg.Ledger.LockTimeout,
	})
	agg := dashboard.NewAggregator(store, store, directory, cfg.Database.QueryTimeout)

	opts := attendance.Options{SimilarLimit: cfg.Recognition.SimilarLimit}
	if cfg.Extractor.URL != "" {
		opts.Extractor = extractor.NewClient(cfg.Extractor.URL, cfg.Extractor.MaxImageSize, cfg.Extractor.Timeout)
	}
	a.service = attendance.NewService(identities, matcher, l, agg, directory, opts)
	return a, nil
}

// Close releases all connections.
func (a *app) Close() {
	if a.directory != nil {
		a.directory.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// outputJSON writes data as indented JSON to stdout.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
