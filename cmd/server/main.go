package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"markregister/internal/auth"
	"markregister/internal/ingest"
	"markregister/internal/marks"
	"markregister/internal/registry"
	"markregister/internal/report"
	"markregister/internal/server"
	"markregister/internal/shared"
)

func main() {
	log.Println("INFO: Starting Mark Register Service...")

	// 1. Load Configuration. LoadEnv logs a warning itself when no .env
	// file exists.
	shared.LoadEnv(".env")
	config, err := shared.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load config: %v", err)
	}
	if err := shared.ValidateConfig(config); err != nil {
		log.Fatalf("FATAL: Invalid config: %v", err)
	}
	if shared.IsDevelopment(config) {
		shared.PrintConfig(config)
	}

	// 2. Connect MongoDB
	client, db, err := shared.ConnectMongoDB(&config.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := shared.DisconnectMongoDB(client); err != nil {
			log.Printf("Warning: MongoDB disconnect failed: %v", err)
		}
	}()

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := shared.EnsureIndexes(indexCtx, db); err != nil {
		log.Printf("Warning: failed to ensure indexes: %v", err)
	}
	cancel()

	// 3. Load the header alias table (optional override file)
	aliases := ingest.DefaultAliasTable()
	if config.Upload.AliasFile != "" {
		aliases, err = ingest.LoadAliasTable(config.Upload.AliasFile)
		if err != nil {
			log.Fatalf("FATAL: Failed to load alias table: %v", err)
		}
	}

	// 4. Wire Services
	authService := auth.NewService(db, config)
	markService := marks.NewService(db, config.Upload.MaxBatchSize)
	registryService := registry.NewService(db)
	exporter := report.NewExporter(markService, registryService, config.Export.Workers)

	router := server.SetupRoutes(config, &server.Services{
		Auth:       authService,
		Marks:      markService,
		Registry:   registryService,
		Exports:    exporter,
		Validator:  authService,
		Normalizer: ingest.NewNormalizer(aliases),
	})

	// 5. Configure Server
	httpServer := &http.Server{
		Addr:         ":" + config.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 6. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: Server listening on port %s", config.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: server shutdown error: %v", err)
	}

	log.Println("INFO: Server stopped.")
}
