package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"canvasthink-be/internal/config"
	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/internal/repository/implementation"
	"canvasthink-be/internal/service"
	"canvasthink-be/pkg/database"
	pktNats "canvasthink-be/pkg/nats"
)

// archiver consumes the EVENTS stream and stores interactions, emotional
// samples and adaptations in Postgres.
func main() {
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer func() { _ = sysLogger.Sync() }()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Fatalf("Unable to connect to NATS: %v", err)
	}
	defer natsSub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive := service.NewArchiveService(implementation.NewArchiveRepository(db), natsSub, cfg.Queue.ArchiveDurable, sysLogger)
	if err := archive.Start(ctx); err != nil {
		log.Fatalf("Unable to start archiver: %v", err)
	}

	<-ctx.Done()
	sysLogger.Info("Archiver", "Shutting down", nil)
}
