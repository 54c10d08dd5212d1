package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/sharecount/internal/app"
	"github.com/samvad-hq/sharecount/internal/config"
	"github.com/samvad-hq/sharecount/internal/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tracker start failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("tracker", pflag.ContinueOnError)
	once := fs.Bool("once", false, "poll every target once and exit")
	fs.String("targets", "", "targets file (overrides TARGETS_FILE)")
	fs.String("publishers", "", "publishers file (overrides PUBLISHERS_FILE)")
	fs.String("listen", "", "serve the HTTP API on this address (overrides SERVER_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	for key, flag := range map[string]string{
		"targets_file":    "targets",
		"publishers_file": "publishers",
		"server_addr":     "listen",
	} {
		if f := fs.Lookup(flag); f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg, err := config.LoadWith(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("tracker starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker, err := app.NewTracker(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize tracker", "error", err)
		return err
	}

	if *once {
		if err := tracker.RunOnce(ctx); err != nil {
			return fmt.Errorf("tracker poll: %w", err)
		}
		return nil
	}

	if err := tracker.Run(ctx); err != nil {
		return fmt.Errorf("tracker run: %w", err)
	}

	return nil
}
