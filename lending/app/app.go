package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/config"
	"github.com/Astemirdum/lending-service/lending/internal/handler"
	"github.com/Astemirdum/lending-service/lending/internal/repository"
	"github.com/Astemirdum/lending-service/lending/internal/server"
	"github.com/Astemirdum/lending-service/lending/internal/service"
	"github.com/Astemirdum/lending-service/lending/migrations"
	"github.com/Astemirdum/lending-service/pkg/circuit_breaker"
	"github.com/Astemirdum/lending-service/pkg/kafka"
	"github.com/Astemirdum/lending-service/pkg/logger"
	"github.com/Astemirdum/lending-service/pkg/postgres"
	"github.com/Astemirdum/lending-service/pkg/redisx"
)

// Engine is the lending service together with the resources it holds.
type Engine struct {
	Service *service.Service
	closers []func()
}

func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// NewEngine connects to Postgres, applies migrations and, when Kafka is
// configured, attaches the borrowing event log.
func NewEngine(ctx context.Context, cfg config.Config, log *zap.Logger) (*Engine, error) {
	eng := &Engine{}
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return nil, fmt.Errorf("db init %v", err)
	}
	eng.closers = append(eng.closers, db.Close)

	repo, err := repository.NewRepository(db, log)
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("repo %v", err)
	}

	loc, err := cfg.Lending.Location()
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("time zone %q: %v", cfg.Lending.TimeZone, err)
	}
	opts := []service.Option{
		service.WithLocation(loc),
		service.WithLoanPeriod(cfg.Lending.LoanDays, cfg.Lending.MaxLoanDays),
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			// events are best effort, lending works without them
			log.Error("kafka producer", zap.Error(err))
		} else {
			const (
				recordLength     = 20
				openTimeout      = 10 * time.Second
				failureRatio     = 0.5
				recoveryRequests = 3
			)
			cb := circuit_breaker.New(recordLength, openTimeout, failureRatio, recoveryRequests)
			eventLog := kafka.NewEventLog(producer, cfg.Kafka.Topic, cb)
			eng.closers = append(eng.closers, func() {
				if err := eventLog.Close(); err != nil {
					log.Error("kafka close", zap.Error(err))
				}
			})
			opts = append(opts, service.WithEventLogger(eventLog))
		}
	}

	eng.Service = service.NewService(repo, log, opts...)
	return eng, nil
}

func Run(cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "lending")
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	eng, err := NewEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	hOpts := []handler.Option{
		handler.WithLimits(handler.Limits{
			Checkout: cfg.Lending.CheckoutLimit,
			Return:   cfg.Lending.ReturnLimit,
			Window:   cfg.Lending.LimitWindow,
		}),
	}
	if cfg.Redis.Enabled() {
		rdb, err := redisx.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis init %v", err)
		}
		defer rdb.Close()
		hOpts = append(hOpts, handler.WithIdempotency(
			redisx.NewIdempotencyStore(rdb, "checkout", cfg.Redis.PendingTTL, cfg.Redis.IdempotencyTTL)))
	}
	h := handler.New(eng.Service, eng.Service, log, hOpts...)

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
	return nil
}
