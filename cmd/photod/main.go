// Package main is the entry point for the photo library backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/homebase-id/photo-library-backend/internal/domain/library"
	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
	"github.com/homebase-id/photo-library-backend/internal/domain/timeline"
	"github.com/homebase-id/photo-library-backend/internal/infra/cache"
	"github.com/homebase-id/photo-library-backend/internal/infra/store"
	"github.com/homebase-id/photo-library-backend/internal/transport/httpapi"
	"github.com/homebase-id/photo-library-backend/internal/version"
)

func main() {
	// Command line flags
	port := flag.String("port", "3002", "HTTP server port")
	storeURL := flag.String("store-url", "", "Record store base URL (required)")
	token := flag.String("token", "", "Record store bearer token")
	driveAlias := flag.String("drive-alias", photo.PhotoDrive.Alias, "Target drive alias")
	driveType := flag.String("drive-type", photo.PhotoDrive.Type, "Target drive type")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *storeURL == "" {
		log.Fatal().Msg("-store-url is required")
	}

	versionInfo := version.GetInfo()
	log.Info().Msgf("%s", versionInfo.String())
	log.Info().
		Str("port", *port).
		Str("store_url", *storeURL).
		Str("drive_alias", *driveAlias).
		Bool("token_set", *token != "").
		Msg("Configuration")

	drive := photo.Drive{Alias: *driveAlias, Type: *driveType}

	// Wire services
	storeClient := store.NewClient(*storeURL, store.WithToken(*token))
	libraryService := library.NewService(storeClient)
	timelineService := timeline.NewService(storeClient, cache.NewStore(), libraryService)
	apiServer := httpapi.NewServer(timelineService, libraryService, drive)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", apiServer)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
