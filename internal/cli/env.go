package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/sandbox/internal/clusterpath"
	"github.com/roach88/sandbox/internal/config"
	"github.com/roach88/sandbox/internal/logging"
	"github.com/roach88/sandbox/internal/sandbox"
	"github.com/roach88/sandbox/internal/store"
	"github.com/roach88/sandbox/internal/tablestore"
)

// cluster is the table store as the CLI uses it.
type cluster interface {
	tablestore.Cluster
	tablestore.Lister
}

// environment holds everything a command needs, built from configuration.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	cluster cluster
	manager *sandbox.Manager
	closers []func()
}

// openEnvironment loads configuration and opens the metadata store, the
// table store and the mount filesystem. Callers must Close the result.
func openEnvironment(opts *RootOptions, stderr io.Writer) (*environment, error) {
	cfg, err := config.Load(config.FindConfigFile(opts.ConfigPath))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, flush, err := logging.Setup(logging.Options{
		Level:  level,
		SeqURL: cfg.Log.SeqURL,
		Writer: stderr,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}

	env := &environment{cfg: cfg, logger: logger, closers: []func(){flush}}

	env.cluster, err = openCluster(env, cfg)
	if err != nil {
		env.Close()
		return nil, err
	}

	logger.Debug("opening metadata database", "path", cfg.Database)
	if err := ensureParentDir(cfg.Database); err != nil {
		env.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open metadata database", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		env.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open metadata database", err)
	}
	env.closers = append(env.closers, func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	})

	resolver, err := clusterpath.NewResolver(cfg.Cluster.Mounts)
	if err != nil {
		env.Close()
		return nil, WrapExitError(ExitCommandError, "invalid cluster mounts", err)
	}

	env.manager = sandbox.NewManager(env.cluster, st, clusterpath.NewFS(resolver), sandbox.Options{
		User:              cfg.User,
		CallTimeout:       cfg.CallTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		VerifyConcurrency: cfg.VerifyConcurrency,
		StaleAfter:        cfg.StaleAfter,
		Clock:             opts.Clock,
		IDs:               opts.IDs,
		Logger:            logger,
	})
	return env, nil
}

func openCluster(env *environment, cfg *config.Config) (cluster, error) {
	switch cfg.Cluster.Backend {
	case config.BackendMemory:
		env.logger.Debug("using in-memory cluster", "cluster", cfg.Cluster.Name)
		mem, err := tablestore.NewMemory()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create in-memory cluster", err)
		}
		return mem, nil

	case config.BackendSQLite:
		env.logger.Debug("opening cluster database", "cluster", cfg.Cluster.Name, "path", cfg.Cluster.TablesDB)
		if err := ensureParentDir(cfg.Cluster.TablesDB); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open cluster database", err)
		}
		c, err := tablestore.OpenSQLite(cfg.Cluster.TablesDB)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open cluster database", err)
		}
		env.closers = append(env.closers, func() {
			if err := c.Close(); err != nil {
				env.logger.Error("error closing cluster database", "error", err)
			}
		})
		return c, nil
	}
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown cluster backend %q", cfg.Cluster.Backend))
}

// callContext bounds a direct table-store call by the configured timeout.
func (e *environment) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.CallTimeout)
}

// Close releases resources in reverse order of acquisition.
func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
