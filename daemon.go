package main

import (
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
)

// runConfig loads the config file and applies the flags given on the
// command line on top of it.
func runConfig(cmd *cobra.Command) (*Config, error) {
	path := rootConfig
	required := path != ""
	if path == "" {
		path = configPath()
	}
	cfg, err := loadConfig(path, required)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("adapter") {
		cfg.Adapter = rootAdapter
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = rootLogLevel
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := runConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := configureLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	// Arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	devices := Resolve(newBluez(conn, cfg.Adapter, logger), patternsFor(args, cfg), logger)

	bus := newEventBus(logger)
	ctrl := NewController(bus, devices, logger)
	defer ctrl.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bus.Run(ctx)
	}()

	watcher := newLockWatcher(conn, logger)
	logger.WithField("devices", devices.Len()).Info("watching screen lock")
	err = watcher.Run(ctx, bus)

	stop()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("watch lock signals: %w", err)
	}
	logger.Info("shutting down")
	return nil
}
