package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dan9191/bank-insights/internal/app"
	"github.com/Dan9191/bank-insights/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "insights",
	Short:         "Operator tooling for the behavioral insights service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(importOFXCmd())
	rootCmd.AddCommand(personasCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(nudgesCmd())
	rootCmd.AddCommand(patternsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and connects the service stack
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	logger := app.NewLogger(level)
	logger.SetOutput(os.Stderr)
	return app.New(cmd.Context(), cfg, logger)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
