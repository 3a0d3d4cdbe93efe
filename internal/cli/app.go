package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gameworld/internal/config"
	"gameworld/internal/db"
	"gameworld/internal/events"
	"gameworld/internal/facade"
	"gameworld/internal/identity"
	"gameworld/internal/kv"
	"gameworld/internal/ledger"
	"gameworld/internal/logging"
)

// app is everything one command invocation runs against.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	bus    *events.Bus
	local  kv.Store
	db     *db.DB // nil unless DATABASE_URL is set and reachable
	ledger *ledger.Ledger
	facade *facade.Facade

	closers []io.Closer
}

func openApp(cfg config.Config) (*app, error) {
	logger, logCloser := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	a := &app{
		cfg:     cfg,
		log:     logger,
		bus:     events.NewBus(),
		closers: []io.Closer{logCloser},
	}

	local, err := kv.Open(cfg.LocalStore, cfg.LocalTarget())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	a.local = local
	a.closers = append(a.closers, local)
	a.ledger = ledger.New(local, a.bus, logger)

	var remote facade.Remote
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, using in-memory remote store", "error", err)
			remote = db.NewMemory()
		} else {
			if err := database.Migrate(); err != nil {
				logger.Error("migration failed", "error", err)
			}
			a.db = database
			a.closers = append(a.closers, database)
			remote = database
		}
	} else {
		logger.Debug("DATABASE_URL not set, using in-memory remote store")
		remote = db.NewMemory()
	}

	var idp identity.Provider
	switch cfg.AuthProvider {
	case "gotrue":
		idp = identity.NewGoTrue(cfg.AuthURL, cfg.AuthAPIKey)
	default:
		idp = identity.NewMemory(cfg.AuthSessionTTL)
	}

	a.facade = facade.New(facade.Options{
		Remote:   remote,
		Identity: idp,
		Local:    local,
		Bus:      a.bus,
		Timeout:  cfg.RemoteTimeout,
		Logger:   logger,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
