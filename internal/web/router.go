package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"brandsim/server/internal/metrics"
)

// RouterConfig carries what the router needs beyond the handlers
type RouterConfig struct {
	AllowedOrigins []string
	// UploadsDir is served under /uploads when set.
	UploadsDir string
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

func NewRouter(h *Handlers, auth *Authenticator, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("Not found"))
	})

	r.Get("/health", h.HealthCheck)
	if cfg.Gatherer != nil {
		r.Mount("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.UploadsDir != "" {
		r.Mount("/uploads", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/game", func(r chi.Router) {
			r.With(auth.QueryTokenRequired).Get("/feed", h.GameFeed)

			r.Group(func(r chi.Router) {
				r.Use(auth.Required)
				r.Get("/", h.GetGames)
				r.Post("/", h.CreateGame)
				r.Put("/", h.UpdateGame)
				r.Delete("/", h.DeleteGame)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Required)

			r.Route("/company", func(r chi.Router) {
				r.Get("/", h.ListCompanies)
				r.Post("/", h.CreateCompany)
				r.Put("/", h.UpdateCompany)
				r.Delete("/", h.DeleteCompany)
			})

			r.Route("/scenario", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/", h.CreateScenario)
				r.Put("/", h.UpdateScenario)
				r.Delete("/", h.DeleteScenario)
			})

			r.Route("/post", func(r chi.Router) {
				r.Get("/", h.ListPosts)
				r.Post("/", h.CreatePost)
				r.Post("/like", h.ToggleLike)
			})
		})
	})

	return r
}

// requestLogger writes one zap line and one metric sample per request.
func requestLogger(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			elapsed := time.Since(start)

			m.ObserveHTTP(r.Method, route, status, elapsed)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
				zap.String("client_ip", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
