package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/account"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/checkout"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/lifecycle"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/config"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/transport/http/handler"
	appmiddleware "github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// work such as the rate limiter sweeper.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.ProviderHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	userRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, ctx.Done())
	authMw := appmiddleware.Auth(deps.Identities)

	diag := diagnostics.NewRecorder(deps.Store, log)
	engine := lifecycle.NewService(lifecycle.ServiceDeps{
		Store:           deps.Store,
		Diagnostics:     diag,
		Alerter:         deps.Alerter,
		Logger:          log,
		PollIntervals:   cfg.Correlation.PollIntervals,
		MaxReads:        cfg.Correlation.MaxReads,
		FreshnessWindow: cfg.Correlation.FreshnessWindow,
		TempRecordTTL:   cfg.Correlation.TempRecordTTL,
	})
	checkoutSvc := checkout.NewService(checkout.ServiceDeps{
		Store:         deps.Store,
		Provider:      deps.Provider,
		Hasher:        deps.Hasher,
		Diagnostics:   diag,
		Logger:        log,
		TempRecordTTL: cfg.Correlation.TempRecordTTL,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		Store:       deps.Store,
		Hasher:      deps.Hasher,
		Canceller:   deps.Provider,
		Diagnostics: diag,
		Logger:      log,
	})

	healthH := handler.NewHealthHandler()
	webhookH := handler.NewWebhookHandler(deps.Webhooks, engine, deps.Archive, diag, log)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc)
	accountH := handler.NewAccountHandler(accountSvc)

	r.NotFound(healthH.NotFound)
	r.MethodNotAllowed(healthH.MethodNotAllowed)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Post("/webhooks/lemonsqueezy", webhookH.LemonSqueezy)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(userRL.Limit)
			r.Use(authMw)

			r.Post("/checkout", checkoutH.Create)
			r.Get("/subscription-status", accountH.Status)
			r.Post("/speech-usage", accountH.Consume)
			r.Post("/unsubscribe", accountH.Unsubscribe)
		})
	})

	return r
}
