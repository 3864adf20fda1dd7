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

	"github.com/shelfbridge/loansync-service/config"
	"github.com/shelfbridge/loansync-service/internal/catalog"
	"github.com/shelfbridge/loansync-service/internal/handler"
	"github.com/shelfbridge/loansync-service/internal/lending"
	"github.com/shelfbridge/loansync-service/internal/repository"
	"github.com/shelfbridge/loansync-service/internal/server"
	"github.com/shelfbridge/loansync-service/internal/service"
	"github.com/shelfbridge/loansync-service/migrations"
	"github.com/shelfbridge/loansync-service/pkg/kafka"
	"github.com/shelfbridge/loansync-service/pkg/logger"
	"github.com/shelfbridge/loansync-service/pkg/postgres"
)

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "loansync")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return fmt.Errorf("db init %w", err)
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return fmt.Errorf("repo %w", err)
	}

	client := lending.NewClient(log, cfg.Lending)
	fetcher := catalog.NewFetcher(client, cfg.Sync.CacheTTL, log)

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("kafka.NewProducer %w", err)
	}
	svc := service.New(log, cfg, client, fetcher, repo, service.NewEnqueuer(producer))
	if err := svc.LoadToken(context.Background()); err != nil {
		return fmt.Errorf("load token %w", err)
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.LoanEventsConsumer)
	if err != nil {
		return fmt.Errorf("kafka.NewConsumer %w", err)
	}
	consumeCtx, consumeCancel := context.WithCancel(context.Background())
	defer consumeCancel()
	go kafka.Consume(consumeCtx, consumer, handler.NewConsumer(repo.RecordEvent, log), kafka.LoanEventsTopic, log)

	h := handler.New(log, svc)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err = srv.Run(); err != nil {
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
		log.DPanic("srv.Stop", zap.Error(err))
	}
	consumeCancel()
	_ = consumer.Close()
	_ = producer.Close()
	db.Close()
	log.Info("Graceful shutdown finished")
	return nil
}
