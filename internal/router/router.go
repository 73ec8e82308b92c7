package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/web"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/utilities"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (lrw *loggingResponseWriter) statusCode() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

// RequestIDMiddleware assigns an X-Request-ID to requests that arrive
// without one and echoes it on the response.
func RequestIDMiddleware(ids *utilities.RequestIDs) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = ids.Next()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", r.Header.Get(RequestIDHeader),
				"status", lrw.statusCode(),
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// scripts and styles are served from /static, so no inline allowances are needed
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self'; form-action 'self';")
			}

			if r.TLS != nil {
				// 30 days
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NoStoreMiddleware keeps admin pages out of shared caches.
func NoStoreMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Deps are the handlers and collaborators mounted by RegisterRoutes.
type Deps struct {
	Registration *registration.Handler
	Admin        *admin.Handler
	AdminService *admin.Service
	Metrics      *Metrics
	Gatherer     prometheus.Gatherer
	RequestIDs   *utilities.RequestIDs
}

// RegisterRoutes mounts HTTP handlers on the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", web.Static()))

	// public waitlist
	mux.HandleFunc("GET /{$}", d.Registration.Index)
	mux.HandleFunc("POST /api/register", d.Registration.Register)

	// admin
	requireAdmin := admin.RequireAuthenticated(d.AdminService, logger)
	mux.Handle("GET /admin/login", NoStoreMiddleware(http.HandlerFunc(d.Admin.LoginForm)))
	mux.Handle("POST /admin/login", NoStoreMiddleware(http.HandlerFunc(d.Admin.Login)))
	mux.Handle("GET /admin/dashboard", NoStoreMiddleware(requireAdmin(http.HandlerFunc(d.Admin.Dashboard))))
	mux.Handle("GET /admin/logout", NoStoreMiddleware(http.HandlerFunc(d.Admin.Logout)))

	// request id, then logging, then metrics, then security headers around the mux
	var handler http.Handler = SecurityHeadersMiddleware()(mux)
	if d.Metrics != nil {
		handler = d.Metrics.Middleware()(handler)
	}
	handler = LoggingMiddleware(logger)(handler)
	return RequestIDMiddleware(d.RequestIDs)(handler)
}
