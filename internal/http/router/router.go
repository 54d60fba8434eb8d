// Package router wires the HTTP surface: middleware first, then the route
// table.
//
// Route table:
//
//	GET    /healthz      → store reachability
//	GET    /users        → list all users
//	POST   /users        → create a user
//	GET    /users/{id}   → get one user
//	PUT    /users/{id}   → replace a user
//	DELETE /users/{id}   → delete a user
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aanand-mishra/users-api/internal/http/handlers/health"
	"github.com/aanand-mishra/users-api/internal/http/handlers/user"
	"github.com/aanand-mishra/users-api/internal/service"
)

// Options tunes the middleware stack.
type Options struct {
	// AllowedOrigins for CORS. Empty means "*".
	AllowedOrigins []string

	// MaxBodyBytes caps request bodies. Zero disables the cap.
	MaxBodyBytes int64

	// Logger receives one access-log line per request. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// New returns the application's http.Handler.
func New(svc *service.Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	// Recoverer sits inside accessLog so a panicking handler is still
	// answered (500) and logged.
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if opts.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(opts.MaxBodyBytes))
	}

	r.Get("/healthz", health.Check(svc))

	r.Get("/users", user.GetList(svc))
	r.Post("/users", user.New(svc))
	r.Get("/users/{id}", user.GetByID(svc))
	r.Put("/users/{id}", user.Update(svc))
	r.Delete("/users/{id}", user.Delete(svc))

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				log.InfoContext(r.Context(), "request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
