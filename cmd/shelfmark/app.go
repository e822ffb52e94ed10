package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"shelfmark/internal/classifier"
	"shelfmark/internal/config"
	"shelfmark/internal/history"
	"shelfmark/internal/organizer"
	"shelfmark/internal/storage"
	"shelfmark/internal/store"
)

// app bundles the wired collaborators for one CLI invocation.
type app struct {
	cfg *config.Config
	db  *storage.DB
	log *slog.Logger
}

func setup(c *cli.Context) (*app, error) {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	configPath := c.String("config")
	if configPath == "" {
		var err error
		configPath, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := c.String("db")
	if dbPath == "" {
		dbPath, err = storage.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &app{cfg: cfg, db: db, log: logger}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database failed", "error", err)
	}
}

// buildOrganizer wires the full pipeline. withClassifier is false for
// commands that never classify (history management, preview).
func (a *app) buildOrganizer(withClassifier bool) (*organizer.Organizer, error) {
	adapter := store.NewAdapter(a.db, a.log)
	tracker := history.NewTracker(a.db)

	var client organizer.Classifier
	if withClassifier {
		provider, err := classifier.NewProvider(
			a.cfg.Provider.Kind,
			a.cfg.APIKey(),
			a.cfg.Provider.Model,
			a.cfg.Provider.Endpoint,
		)
		if err != nil {
			return nil, err
		}
		client = classifier.New(classifier.Options{
			Provider:         provider,
			RequestTimeout:   time.Duration(a.cfg.RequestTimeoutSeconds) * time.Second,
			MaxResponseBytes: a.cfg.MaxResponseBytes,
			AllowKeepCurrent: !a.cfg.ForcePlacement,
			Logger:           a.log,
		})
	}

	return organizer.New(organizer.Params{
		Store:      adapter,
		Classifier: client,
		History:    tracker,
		Reports:    a.db,
		Config:     *a.cfg,
		Logger:     a.log,
	}), nil
}
