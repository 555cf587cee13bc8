package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"probes/config"
	"probes/kafka"
	"probes/logger"
	"probes/models"
)

// newRootCmd wires consume (the default) and produce to cfg.
func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "kafkaprobe",
		Short:         "Consume the probe topic and print every message",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return kafka.Consume(cmd.Context(), cfg.Broker, printMessage)
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "produce",
		Short: "Publish one message to the probe topic and report the result",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printResult(kafka.Produce(cmd.Context(), cfg.Broker))
		},
	})
	return root
}

func printMessage(_ context.Context, msg models.ConsumedMessage) error {
	logger.Info("message consumed",
		logger.FieldKV("partition", msg.Partition),
		logger.FieldKV("offset", msg.Offset),
		logger.FieldKV("event", msg.Event))
	return nil
}

func printResult(res kafka.Result) {
	if !res.OK() {
		logger.Error("send failed", res.Err, logger.FieldKV("kind", res.Kind.String()))
		return
	}
	logger.Info("send OK", logger.FieldKV("metadata", res.Metadata))
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
		logger.Fatal("kafka probe failed", err)
	}
}
