package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/goldmafia/clubhouse/internal/api"
	"github.com/goldmafia/clubhouse/internal/auth"
	"github.com/goldmafia/clubhouse/internal/config"
	"github.com/goldmafia/clubhouse/internal/middleware"
)

// ReadyCheck is a named dependency probe for /readyz
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies holds all service dependencies for the server
type Dependencies struct {
	MediaHandler *api.MediaHandler
	Tokens       auth.Validator
	UploadLimit  *middleware.RateLimiter
	WSHandler    http.Handler
	Metrics      http.Handler
	HTTPMetrics  *HTTPMetrics
	ReadyChecks  []ReadyCheck
	Logger       *slog.Logger
}

// New creates an HTTP server with all routes configured.
func New(cfg *config.Config, deps *Dependencies) *http.Server {
	mux := http.NewServeMux()

	registerRoutes(mux, deps)

	handler := chainMiddleware(mux,
		requestIDMiddleware,
		corsMiddleware(cfg),
		accessLogMiddleware(deps.Logger),
		deps.HTTPMetrics.Middleware,
		recoverMiddleware(deps.Logger),
	)

	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		// Uploads wait on the pinning service before answering
		WriteTimeout: cfg.PinataTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /readyz", readyHandler(deps.ReadyChecks, deps.Logger))

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	h := deps.MediaHandler

	// =========================================================================
	// Public resolution
	// =========================================================================
	mux.HandleFunc("GET /ipfs/{cid}/url", h.ResolveURL)
	mux.HandleFunc("GET /files/{cid}", h.GetFile)

	// =========================================================================
	// Protected routes (require auth)
	// =========================================================================
	authMiddleware := auth.Middleware(deps.Tokens)
	protected := func(fn http.HandlerFunc) http.Handler {
		return authMiddleware(fn)
	}
	upload := func(fn http.HandlerFunc) http.Handler {
		return authMiddleware(deps.UploadLimit.Middleware(fn))
	}

	mux.Handle("GET /profiles/me", protected(h.GetMyProfile))
	mux.Handle("POST /profiles/me/avatar", upload(h.UploadAvatar))

	mux.Handle("POST /deals/{dealId}/documents", upload(h.UploadDealDocument))
	mux.Handle("GET /deals/{dealId}/documents", protected(h.ListDealDocuments))

	mux.Handle("POST /channels/{channelId}/attachments", upload(h.UploadChatAttachment))
	mux.Handle("GET /channels/{channelId}/attachments", protected(h.ListChatAttachments))

	mux.Handle("POST /nft/metadata", upload(h.PinNFTMetadata))
	mux.Handle("GET /files/{cid}/mirror", protected(h.GetMirrorURL))

	// =========================================================================
	// WebSocket route
	// =========================================================================
	mux.Handle("GET /ws", deps.WSHandler)
}

func readyHandler(checks []ReadyCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Warn("readiness check failed", "check", c.Name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"not ready","error":"` + c.Name + ` unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
