package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/nevesb/romc-catalog/internal/api"
	"github.com/nevesb/romc-catalog/internal/catalog"
	"github.com/nevesb/romc-catalog/internal/config"
	"github.com/nevesb/romc-catalog/internal/db"
	"github.com/nevesb/romc-catalog/internal/entityloader"
	"github.com/nevesb/romc-catalog/internal/export"
	"github.com/nevesb/romc-catalog/internal/middleware"
	"github.com/nevesb/romc-catalog/internal/repository"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	dbConfig, serverConfig, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	conn, err := db.NewConnection(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(dbConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories over the tagged-record store.
	snapshotRepo := repository.NewSnapshotRepository(conn.Pool)
	skillRepo := repository.NewSkillRepository(conn.Pool)
	entityRepo := repository.NewEntityRepository(conn.Pool)
	formulaRepo := repository.NewFormulaRepository(conn.Pool)
	bundleRepo := repository.NewBundleRepository(conn.Pool)

	loader := entityloader.NewRecordLoader(entityRepo)
	engine := catalog.NewEngine(snapshotRepo, skillRepo, entityRepo, formulaRepo, bundleRepo, loader)

	exportService := export.NewService(engine, export.WithExportDirectory(serverConfig.ExportDir))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{serverConfig.AllowedOrigin},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := http.NewServeMux()
	mux.Handle("/exports", export.NewHTTPHandler(exportService))
	mux.Handle("/exports/", export.NewHTTPHandler(exportService))
	mux.Handle("/", api.NewHTTPHandler(engine, logger))

	server := &http.Server{
		Addr:         serverConfig.Addr,
		Handler:      middleware.LoggingMiddleware(logger, corsHandler.Handler(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting catalog server", "addr", serverConfig.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}
