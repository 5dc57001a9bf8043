package handler

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padalah/interviewflow/internal/config"
	documentHandler "github.com/padalah/interviewflow/internal/handler/document"
	interviewHandler "github.com/padalah/interviewflow/internal/handler/interview"
	wsHandler "github.com/padalah/interviewflow/internal/handler/ws"
	"github.com/padalah/interviewflow/internal/service/conn"
	"github.com/padalah/interviewflow/internal/service/document"
	"github.com/padalah/interviewflow/internal/service/interviewer"
	"github.com/padalah/interviewflow/internal/service/ratelimit"
	"github.com/padalah/interviewflow/internal/service/session"
	"github.com/padalah/interviewflow/pkg/utils"
)

// NewRouter wires HTTP routes to core services. The registries and the
// limiter arrive as explicit dependencies; nothing here is ambient state.
func NewRouter(cfg *config.Config, registry *session.Registry, manager *conn.Manager, limiter *ratelimit.Limiter, engine interviewer.Engine, extractor *document.Extractor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	startedAt := time.Now()

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"message": "Welcome to InterviewFlow AI API",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":            "healthy",
			"activeSessions":    registry.ActiveCount(),
			"activeConnections": manager.Count(),
			"uptimeSeconds":     int(time.Since(startedAt).Seconds()),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	// REST endpoints share the per-client request budget; the channel does
	// its own in-loop admission keyed by session.
	r.Group(func(api chi.Router) {
		api.Use(RateLimit(limiter))

		interviewHandler.New(registry, engine, extractor, cfg.Server.WebSocketHost).RegisterRoutes(api)
		documentHandler.New(extractor).RegisterRoutes(api)
	})

	wsHandler.New(registry, manager, limiter, engine, cfg.Server.AllowedOrigins).RegisterRoutes(r)

	return r
}

// RateLimit admits requests per client IP against the request category and
// answers 429 when the sliding window is full.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r), ratelimit.CategoryRequest) {
				utils.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the remote IP with the ephemeral port stripped. RealIP has
// already rewritten RemoteAddr when a proxy header is present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
