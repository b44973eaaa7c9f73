package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facefind/internal/app"
	"github.com/saturnino-fabrica-de-software/facefind/internal/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "facefind",
	Short: "Find event photos by selfie",
	Long: `facefind keeps a per-event index of face encodings for the photographs
stored under <event>/known_faces/ in the configured bucket, and matches guest
selfies against it.

Configuration is read from the environment (and an optional .env file).
STORAGE_BUCKET is required.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading configuration")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load(envFile)
}

// setup loads configuration and wires the application. The returned context
// is canceled on SIGINT/SIGTERM.
func setup() (context.Context, *app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		stop()
		return nil, nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}

	cleanup := func() {
		a.Close()
		stop()
	}
	return ctx, a, cleanup, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
