// Paideia — ancient-language lesson generation service.
// Entry point: flag parsing, wiring and graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/paideia-app/paideia/internal/infra/config"
	"github.com/paideia-app/paideia/internal/infra/logging"
	"github.com/paideia-app/paideia/internal/infra/sqlite"
	"github.com/paideia-app/paideia/internal/server"
	"github.com/paideia-app/paideia/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("paideia", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config", "", "Path to YAML configuration file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(*configPath); err != nil {
		fmt.Fprintf(out, "error: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := sqlite.NewDB(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close() //nolint:errcheck
		return fmt.Errorf("run migrations: %w", err)
	}

	srv := server.New(db, cfg, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func printHelp(out io.Writer) {
	helpText := `Paideia — ancient-language lesson generation service

Usage:
  paideia [options]

Options:
  --version          Show version information
  --help             Show this help message
  --config <path>    Load configuration from a YAML file

Configuration can also be set via PAIDEIA_* environment variables
(PAIDEIA_ADDR, PAIDEIA_DB_PATH, PAIDEIA_DEFAULT_PROVIDER, ...).
Environment variables override file values.

Examples:
  paideia --version
  paideia --config paideia.yaml
  PAIDEIA_ADDR=:9090 paideia`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
