package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"probes/config"
	"probes/logger"
	"probes/models"
	"probes/store"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:           "mysqlprobe",
		Short:         "Recreate, fill, read back and drop a scratch table forever",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("starting database probe",
				logger.FieldKV("addr", cfg.Database.Addr()),
				logger.FieldKV("database", cfg.Database.Name),
				logger.FieldKV("table", cfg.Database.Table))
			return store.Run(cmd.Context(), cfg.Database, printReport)
		},
	}
}

func printReport(r models.CycleReport) {
	logger.Info("Inserted data",
		logger.FieldKV("run_id", r.RunID),
		logger.FieldKV("duration_ms", r.Duration.Milliseconds()),
		logger.FieldKV("rows", r.Lines()))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		logger.Fatal("database probe failed", err)
	}
}
