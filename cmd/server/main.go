package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/storekit/shopcore/internal/config"
	"github.com/storekit/shopcore/internal/engine"
	"github.com/storekit/shopcore/internal/events"
	"github.com/storekit/shopcore/internal/httpserver"
	"github.com/storekit/shopcore/internal/logging"
	"github.com/storekit/shopcore/internal/search"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	eng := engine.New(db,
		engine.WithLogger(logger),
		engine.WithLockWait(cfg.LOCK_WAIT),
	)

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer(cfg.KAFKA_ADDRESS, cfg.KAFKA_TOPIC)
	}

	var indexer *search.Indexer
	if cfg.ES_URL != "" {
		esClient, err := search.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		indexer = &search.Indexer{ES: esClient, Index: "products"}
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), httpserver.RequestLogger(logger))

	deps := httpserver.Deps{
		OrderHandler:    &httpserver.OrderHandler{Engine: eng, Producer: producer},
		CatalogHandler:  &httpserver.CatalogHandler{Engine: eng, Producer: producer, Indexer: indexer},
		AccountHandler:  &httpserver.AccountHandler{Engine: eng, Producer: producer},
		DiscountHandler: &httpserver.DiscountHandler{Engine: eng},
		SeedHandler:     &httpserver.SeedHandler{Engine: eng},
		SearchHandler:   &httpserver.SearchHandler{Indexer: indexer},
		JWTSecret:       []byte(cfg.JWT_SECRET),
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         cfg.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	logger.Info("server started", "addr", cfg.HTTP_ADDR)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	logger.Info("shutdown complete")
}
