package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/vitalvault/importer/pkg/common/config"
	"github.com/vitalvault/importer/pkg/common/kafka"
	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/importer"
	"github.com/vitalvault/importer/pkg/parser"
	"github.com/vitalvault/importer/pkg/parser/fhir"
	"github.com/vitalvault/importer/pkg/parser/labdoc"
	"github.com/vitalvault/importer/pkg/parser/samsung"
	"github.com/vitalvault/importer/pkg/store"
	"github.com/vitalvault/importer/pkg/terminology"
)

func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := terminology.Load(cfg.CatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load terminology catalog")
	}

	st, err := store.OpenPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	cache := importer.NewStatusCache(cfg)
	defer cache.Close()

	registry := parser.NewRegistry()
	vendor := samsung.New()
	registry.Register(parser.FormatSamsungExport, vendor)
	registry.Register(parser.FormatGenericCSV, vendor)
	registry.Register(parser.FormatClinicalBundle, fhir.New(catalog))
	registry.Register(parser.FormatLabDocument, labdoc.New())

	orch := importer.New(importer.Options{
		Registry: registry,
		Store:    st,
		Archives: importer.ZipExtractor{MaxEntries: cfg.MaxArchiveEntries},
		Events:   producer,
		Cache:    cache,
	})

	handler := importer.NewHTTPHandler(orch, st, cfg.MaxRequestBody)

	router := mux.NewRouter()
	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Import Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Import Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Import Service stopped")
}
