package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// .env.local overrides .env for local development.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg, gtfsCfg, opts, err := parseConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	coreApp, err := BuildApplication(cfg, gtfsCfg)
	if err != nil {
		slog.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(coreApp.Logger)

	srv, api := CreateServer(coreApp, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, srv, coreApp, api, opts.shutdownTimeout); err != nil {
		slog.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
