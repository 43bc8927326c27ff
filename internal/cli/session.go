package cli

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/tidemark/tidemark/internal/registry"
	"github.com/tidemark/tidemark/internal/sqlite"
)

// session bundles an open registry connection with the loaded config for the
// duration of one command run.
type session struct {
	reg *registry.Registry
	cfg Config
	db  *sql.DB
	log *zap.Logger
}

// newSession loads config, opens the registry database, and constructs the
// registry. Flag values win over config values.
func newSession(opts *RootOptions) (*session, error) {
	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	path := opts.DB
	if path == "" {
		path = cfg.DB
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no registry database specified (use --db or set db in tidemark.yaml)")
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open registry database", err)
	}

	log := opts.logger()
	reg := registry.New(db, sqlite.Dialect{}, cfg.Project,
		registry.WithActor(cfg.User.Name, cfg.User.Email),
		registry.WithLogger(log),
	)

	return &session{reg: reg, cfg: cfg, db: db, log: log}, nil
}

// Close releases the database connection and flushes the logger.
func (s *session) Close() error {
	_ = s.log.Sync()
	return s.db.Close()
}
