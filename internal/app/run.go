package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/config"
)

// Run executes one pipeline-builder command against the standard streams.
// Interrupts cancel the command's context.
func Run(args []string) error {
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()
	log := logging.Component("cli")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", err)
		return err
	}
	log.Debug("configuration loaded",
		logging.String("api_base_url", cfg.APIBaseURL),
		logging.String("cache_type", cfg.CacheType),
		logging.String("database_type", cfg.DatabaseType))

	app, err := New(cfg, Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	if err != nil {
		log.Error("failed to start", err)
		return err
	}
	defer app.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Execute(ctx, args)
}
