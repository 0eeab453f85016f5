package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/agentflow/chatagent"
	"github.com/dohr-michael/agentflow/internal/config"
	"github.com/dohr-michael/agentflow/storage/filestore"
	"github.com/dohr-michael/agentflow/storage/sqlitestore"
)

// loadConfig reads the config named by the --config flag and applies the
// --debug flag to the default logger.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newStore builds the chat store with the persistence backend the config
// selects. The returned close func releases backend resources.
func newStore(cfg *config.Config) (*chatagent.Store, func(), error) {
	opts := chatagent.Options{
		GlobalContextPrompt: cfg.Agent.ContextPrompt,
		StorageKey:          cfg.Storage.Key,
	}
	closeFn := func() {}

	switch cfg.Storage.Backend {
	case "file":
		backend := filestore.NewStore(cfg.Storage.Dir, cfg.Storage.Key)
		opts.PersistTasks = true
		opts.Callbacks = backend.Callbacks()

	case "sqlite":
		dbPath := filepath.Join(cfg.Storage.Dir, cfg.Storage.Key+".db")
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create storage dir: %w", err)
		}
		backend, err := sqlitestore.NewStore(dbPath)
		if err != nil {
			return nil, nil, err
		}
		opts.PersistTasks = true
		opts.Callbacks = backend.Callbacks()
		closeFn = func() { backend.Close() }

	case "none", "":
		// In-memory only.

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return chatagent.NewStore(opts), closeFn, nil
}
