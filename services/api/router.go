package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestTimeout = 30 * time.Second
	// Per node per minute; a node sends 60 at the default interval.
	heartbeatRateLimit = 180
)

// Routes constructs the chi router containing all endpoints. Extra
// middleware (tracing, access logs) wraps every route.
func (a *API) Routes(mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mw...)

	// No configured origins means no cross-origin access.
	if len(a.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
			MaxAge:         int((10 * time.Minute).Seconds()),
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(a.gate.Middleware)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))
				r.Get("/sessions", a.handleListSessions)
				r.Post("/sessions/start", a.handleStartSession)
				r.Get("/nodes", a.handleListNodes)
			})

			// Clone waits on instance creation and address polling.
			r.Post("/sessions/clone", a.handleClone)
		})

		// Keyed like the ping registry so nodes behind one proxy get their own budget.
		r.With(httprate.Limit(heartbeatRateLimit, time.Minute,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return clientIP(r), nil
			}),
		)).Post("/nodes/heartbeat", a.handleHeartbeat)
	})

	return r
}
