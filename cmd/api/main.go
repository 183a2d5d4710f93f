package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/config"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/dynamo"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/google"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/lemonsqueezy"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/memory"
	s3infra "github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/s3"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/sns"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/identity"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/logger"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/signature"
	transporthttp "github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/transport/http"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/transport/http/middleware"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(log)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout: 15 * time.Second,
		// Webhooks may wait out the correlation poll.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 40*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildDeps wires the record store and the optional AWS and provider
// integrations. APP_ENV=local runs against an in-process store.
func buildDeps(ctx context.Context, cfg *config.Config, log *slog.Logger) (*transporthttp.Deps, error) {
	deps := &transporthttp.Deps{
		Provider:   lemonsqueezy.NewClient(cfg.LemonSqueezy),
		Webhooks:   signature.NewVerifier(cfg.WebhookSecret),
		Hasher:     identity.NewHasher(cfg.SubEncryptionKey),
		Identities: map[string]middleware.IdentityVerifier{},
		Logger:     log,
	}
	if cfg.WebhookSecret == "" {
		log.Warn("LEMON_SQUEEZY_WEBHOOK_SIGNATURE not set, every webhook will be rejected")
	}
	if cfg.GoogleClientID != "" {
		deps.Identities[google.Provider] = google.NewVerifier(cfg.GoogleClientID)
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set, authenticated routes will reject every caller")
	}

	if cfg.AppEnv == "local" {
		log.Warn("using in-memory record store")
		deps.Store = memory.NewStore()
		return deps, nil
	}

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTable)
	deps.Store = dynamo.NewTable(dynamoClient, cfg.DynamoTable)

	if cfg.PayloadArchiveBucket != "" {
		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Archive = s3infra.NewArchive(s3Client, cfg.PayloadArchiveBucket)
	}

	if cfg.AlertTopicARN != "" {
		snsClient, err := sns.NewClient(ctx, cfg)
		if err != nil {
			log.Warn("SNS alerter not available", "error", err)
		} else {
			deps.Alerter = sns.NewAlerter(snsClient, cfg.AlertTopicARN)
		}
	}
	return deps, nil
}
