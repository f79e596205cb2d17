// Command audit-consumer appends every person event published by the API
// to an audit log file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/persons-api/internal/config"
	"github.com/iliyamo/persons-api/internal/logger"
	"github.com/iliyamo/persons-api/internal/queue"
)

func main() {
	out := flag.String("out", "logs/person-audit.log", "audit log file")
	flag.Parse()

	cfg := config.LoadRuntime()
	log, err := logger.New(cfg.LogLevel, cfg.Env, "persons-audit")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &queue.AuditConsumer{URL: cfg.RabbitURL, LogPath: *out, Log: log}
	log.Info("audit consumer started", zap.String("queue", queue.PersonEventsQueue), zap.String("out", *out))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("audit consumer stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("audit consumer stopped")
}
