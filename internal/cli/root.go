// Package cli implements the crucible CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matthewbaird/crucible/internal/config"
	"github.com/matthewbaird/crucible/internal/editor"
	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/store"
	"github.com/matthewbaird/crucible/internal/store/httpstore"
	"github.com/matthewbaird/crucible/internal/store/sqlitestore"
)

var (
	cfgPath     string
	backendFlag string

	cfg      config.Config
	logger   *zap.Logger
	registry *schema.Registry
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Interactive client for the crucible entity store",
	Long: "crucible edits and manages the entities a fuzzing cluster runs on: " +
		"tasks, jobs, tools, images and their parameters.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if backendFlag != "" {
			cfg.Backend = backendFlag
		}
		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		registry = schema.MustLoad()
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "Config file path")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Store backend: http or sqlite (overrides config)")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}
	c := zap.NewDevelopmentConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	return c.Build()
}

// openStore builds the configured store backend. The returned closer is
// a no-op for the http backend.
func openStore() (store.Store, func() error, error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := sqlitestore.New(cfg.DBPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		c := httpstore.New(cfg.BaseURL, registry, logger)
		return c, func() error { return nil }, nil
	}
}

func editorOptions(st store.Store) editor.Options {
	return editor.Options{
		Term:     editor.NewStdio(os.Stdin, os.Stdout),
		Store:    st,
		Types:    store.NewCodeRegistry(st),
		Registry: registry,
	}
}

// lookupSchema resolves the TYPE argument or exits.
func lookupSchema(name string) *schema.EntitySchema {
	es, err := registry.Lookup(name)
	if err != nil {
		exitErr("unknown type", err)
	}
	return es
}

// parseFilter turns repeated k=v flags into a store filter.
func parseFilter(pairs []string) (store.Filter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	f := store.Filter{}
	for _, p := range pairs {
		k, v, ok := cutPair(p)
		if !ok {
			return nil, fmt.Errorf("bad filter %q, want key=value", p)
		}
		f[k] = v
	}
	return f, nil
}

func cutPair(s string) (k, v string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
