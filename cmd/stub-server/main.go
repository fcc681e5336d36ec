package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-client/internal/config"
	"github.com/fathima-sithara/chat-client/internal/stubserver"
)

const usage = `In-memory chat server for local development.

Usage:
  stub-server [--port=<port>] [--config=<path>]
  stub-server -h | --help

Options:
  --port=<port>    Listen port (overrides config).
  --config=<path>  Optional YAML config file.
  -h --help        Show this help.`

func main() {
	_ = godotenv.Load()

	args, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	configPath, _ := args.String("--config")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if port, err := args.Int("--port"); err == nil && port != 0 {
		cfg.Stub.Port = port
	}

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	srv := stubserver.New(sugar, stubserver.Options{
		RateLimit: cfg.Stub.RateLimit,
		RateBurst: cfg.Stub.RateBurst,
	})

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Stub.Port)
		sugar.Infow("starting stub chat server", "addr", addr)
		errs <- srv.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case e := <-errs:
		sugar.Fatalw("server error", "err", e)
	case s := <-sig:
		sugar.Infow("signal received", "signal", s)
	}

	if err := srv.Shutdown(); err != nil {
		sugar.Warnw("shutdown", "err", err)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
