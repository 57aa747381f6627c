package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/lending-service/lending/app"
	"github.com/Astemirdum/lending-service/lending/cli"
	"github.com/Astemirdum/lending-service/lending/config"
	"github.com/Astemirdum/lending-service/pkg/kafka"
	"github.com/Astemirdum/lending-service/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.NewConfig(config.WithLogLevel(zapcore.WarnLevel))
	log := logger.NewLogger(cfg.Log, "lendingctl")

	open := func(ctx context.Context) (cli.Lender, func(), error) {
		eng, err := app.NewEngine(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return eng.Service, eng.Close, nil
	}

	var watch cli.Watcher
	if cfg.Kafka.Enabled() {
		watch = func(ctx context.Context, handle kafka.EventHandler) error {
			group, err := kafka.NewConsumerGroup(cfg.Kafka)
			if err != nil {
				return err
			}
			defer group.Close()
			return kafka.Consume(ctx, group, kafka.NewConsumer(handle, log), cfg.Kafka.Topic)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cli.NewRootCommand(open, watch).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
