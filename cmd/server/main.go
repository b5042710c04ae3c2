package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matthewbaird/crucible/internal/config"
	"github.com/matthewbaird/crucible/internal/editor/session"
	"github.com/matthewbaird/crucible/internal/editor/wire"
	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/server"
	"github.com/matthewbaird/crucible/internal/store"
	"github.com/matthewbaird/crucible/internal/store/sqlitestore"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "config file path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("bad log level: %v", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zc.Build()
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync()

	st, err := sqlitestore.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}
	defer st.Close()

	registry := schema.MustLoad()
	sessions := session.NewManager(24*time.Hour, time.Hour)
	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				sessions.Cleanup()
			}
		}
	}()

	editHandler := wire.NewHandler(sessions, st, store.NewCodeRegistry(st), registry, logger)

	if err := server.Run(ctx, server.Config{
		Addr:        cfg.Addr,
		Store:       st,
		Registry:    registry,
		Log:         logger,
		EditHandler: editHandler,
	}); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
