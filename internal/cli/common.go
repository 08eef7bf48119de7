package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/campaign"
	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/ledger"
	"github.com/roach88/statefuzz/internal/store"
)

// newLogger returns a text logger on w. Verbose lowers the level to debug;
// otherwise only warnings are shown so that command output stays readable.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// Uses the command's context if available (for testing).
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// resolveDB returns the --db flag value, falling back to STATEFUZZ_DB.
func resolveDB(flag string, environ map[string]string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	env, err := campaign.ParseEnv(environ)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid environment", err)
	}
	return env.DB, nil
}

// requireDB is resolveDB for commands that cannot run without a store.
func requireDB(flag string, environ map[string]string) (string, error) {
	path, err := resolveDB(flag, environ)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", NewExitError(ExitCommandError, "database path required: pass --db or set STATEFUZZ_DB")
	}
	return path, nil
}

func openStore(path string, opts ...store.Option) (*store.Store, error) {
	st, err := store.Open(path, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

// newEngine builds the engine for target under cfg.
func newEngine(target string, cfg engine.Config, actions []string, opts ...engine.Option) (*engine.Engine, error) {
	pool, err := actor.NewPool(cfg.WithDefaults().Actors)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid actor pool", err)
	}
	var hopts []ledger.HarnessOption
	if len(actions) > 0 {
		hopts = append(hopts, ledger.WithActions(actions...))
	}
	h, err := ledger.Target(target, pool, hopts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid target", err)
	}
	eng, err := engine.New(h, cfg, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return eng, nil
}
