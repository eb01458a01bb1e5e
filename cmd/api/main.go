// Package main provides the entrypoint for the data acquisition API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/acquisition"
	"github.com/dataacquisition/das/internal/api"
	"github.com/dataacquisition/das/internal/api/handler"
	"github.com/dataacquisition/das/internal/api/middleware"
	"github.com/dataacquisition/das/internal/auth"
	"github.com/dataacquisition/das/internal/kvstore"
	"github.com/dataacquisition/das/internal/resilience"
	"github.com/dataacquisition/das/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "das-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting data acquisition API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	circuits := resilience.NewRegistry()

	kvCfg := kvstore.ConfigFromEnv()
	kvCfg.Registry = circuits
	backend, closeBackend, err := kvstore.Open(ctx, kvCfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", kvCfg.Driver).Msg("failed to open key-value store")
	}
	defer func() {
		if closeErr := closeBackend(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close key-value store")
		}
	}()
	log.Info().
		Str("driver", kvCfg.Driver).
		Bool("circuit_breaker", kvCfg.CircuitBreaker).
		Msg("key-value store opened")

	httpClient := newClient("uaa", circuits)

	publicKey, err := loadVerificationKey(ctx, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load token verification key")
	}
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		PublicKeyPEM: publicKey,
		Issuer:       os.Getenv("TOKEN_ISSUER"),
		Audience:     os.Getenv("TOKEN_AUDIENCE"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}
	log.Info().Msg("token verifier initialized")

	var orgs acquisition.OrgLister
	if umURL := os.Getenv("USER_MANAGEMENT_URL"); umURL != "" {
		orgs = auth.NewOrgClient(newClient("user-management", circuits), umURL)
		log.Info().Str("url", umURL).Msg("organization membership checks enabled")
	} else {
		log.Warn().Msg("USER_MANAGEMENT_URL not set - organization membership is not checked")
	}

	validateTransitions := os.Getenv("VALIDATE_TRANSITIONS") == "true"
	service := acquisition.NewService(acquisition.ServiceConfig{
		Repository:          acquisition.NewStore(backend, log),
		Orgs:                orgs,
		ValidateTransitions: validateTransitions,
		Logger:              log,
	})
	log.Info().Bool("validate_transitions", validateTransitions).Msg("acquisition service initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		Verifier:     verifier,
		Service:      service,
		Dependencies: map[string]handler.Pinger{"kv": backend},
		Circuits:     circuits,
		RequireTLS:   os.Getenv("REQUIRE_TLS") == "true",
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

// loadVerificationKey returns VERIFICATION_KEY, or fetches it from
// VERIFICATION_KEY_URL when only the URL is configured.
func loadVerificationKey(ctx context.Context, client *resilience.Client) (string, error) {
	if key := os.Getenv("VERIFICATION_KEY"); key != "" {
		return key, nil
	}
	url := os.Getenv("VERIFICATION_KEY_URL")
	if url == "" {
		return "", errors.New("one of VERIFICATION_KEY or VERIFICATION_KEY_URL must be set")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return auth.FetchVerificationKey(fetchCtx, client, url)
}

func newClient(name string, circuits *resilience.Registry) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = circuits
	return resilience.NewClient(cfg)
}
