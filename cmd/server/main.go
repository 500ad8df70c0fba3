package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/config"
	"github.com/kdev89/feudline/internal/gateway"
	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
	"github.com/kdev89/feudline/internal/room"
	"github.com/kdev89/feudline/internal/stats"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database pool is shared by the question bank and the stats recorder.
	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		pool, err = pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create database pool")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
	}

	// Question bank: Postgres when configured, built-in sample set otherwise.
	var questions question.Provider
	if pool != nil {
		questions = question.NewPostgresProvider(pool)
		log.Info().Str("database", cfg.Database.Database).Msg("question bank: postgres")
	} else {
		questions = question.NewStaticProvider(question.SampleQuestions(), time.Now().UnixNano())
		log.Info().Msg("question bank: built-in sample set")
	}

	// Answer oracle is optional; the resolver falls back to local matching.
	var oracle resolver.Oracle
	if cfg.Oracle.URL != "" {
		oracle = resolver.NewHTTPOracle(cfg.Oracle.URL, time.Duration(cfg.Oracle.Timeout))
		log.Info().Str("oracle_url", cfg.Oracle.URL).Msg("answer oracle enabled")
	}
	res := resolver.New(oracle)

	// Result sinks: NATS publisher and Postgres recorder, both optional.
	var sinks []stats.Sink
	if cfg.NATS.URL != "" {
		nc, err := stats.Connect(cfg.NATS.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Close()
		sinks = append(sinks, stats.NewNATSPublisher(nc, cfg.NATS.Subject))
		log.Info().Str("nats_url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Msg("result publisher enabled")
	}
	if pool != nil {
		sinks = append(sinks, stats.NewPostgresRecorder(pool))
	}
	var sink stats.Sink = stats.NopSink{}
	if len(sinks) > 0 {
		sink = stats.MultiSink(sinks)
	}

	hub := gateway.NewHub(gateway.DefaultConnConfig())
	supervisor := room.NewSupervisor(ctx, clockwork.NewRealClock(), questions, res, sink, cfg.GameSettings(), hub)

	auth := gateway.StaticAuthenticator{}
	handler := gateway.NewHandler(hub, supervisor, auth)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"feudline","active_rooms":%d}`, supervisor.ActiveRooms())
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go hub.Start(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("room supervisor shutdown failed")
	}
	cancel()

	log.Info().Msg("shutdown complete")
}
