package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"refundmerge/internal/config"
	"refundmerge/internal/listener"
	"refundmerge/internal/logging"
	"refundmerge/internal/pipeline"
	"refundmerge/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer logger.Sync()

	sources, err := pipeline.OpenSources(cfg.SourcesPath)
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, pipeline.NewRunner(sources, logger), logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
