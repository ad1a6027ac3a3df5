package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/crate/internal/config"
	"github.com/roach88/crate/internal/enumerator"
	"github.com/roach88/crate/internal/store"
)

// session is an opened store with the config it was opened from.
type session struct {
	cfg   *config.Config
	store *store.Store
	log   *slog.Logger
}

// openSession loads the config, applies flag overrides and opens the store.
// Errors are ExitErrors with ExitCommandError.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg, err := config.LoadOptional(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	setupLogging(opts.logLevel(cfg.Level()))
	log := slog.Default()

	log.Debug("opening database", "path", cfg.Database, "collection", cfg.Collection, "version", cfg.Version)
	st, err := store.Open(ctx, cfg.StoreOptions(log))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return &session{cfg: cfg, store: st, log: log}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Error("error closing database", "error", err)
	}
}

// enumerator returns an enumerator over the session's store.
func (s *session) enumerator(consumer enumerator.Consumer) *enumerator.Enumerator {
	return enumerator.New(s.store, consumer, s.log)
}

// commandContext returns the command's context or a background one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
