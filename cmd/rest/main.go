package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canvasthink-be/internal/bootstrap"
	"canvasthink-be/internal/config"
	"canvasthink-be/internal/server"
	"canvasthink-be/internal/tracer"
	"canvasthink-be/pkg/database"

	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (optional, enables the archive API)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	shutdownTracer := tracer.InitTracer(container.Logger)

	// 4. Start Background Services
	if err := container.ConsumerService.Consume(container.Context()); err != nil {
		log.Panicf("Unable to start consumer: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// 6. Wait for signal, then persist every live session before exiting
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	container.Shutdown(ctx)
	if err := shutdownTracer(ctx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}
