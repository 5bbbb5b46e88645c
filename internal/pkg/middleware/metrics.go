package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	leadWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_writes_total",
			Help: "Total number of lead create/update/delete operations",
		},
		[]string{"operation", "outcome"},
	)

	localFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_local_fallbacks_total",
			Help: "Writes applied only to the in-memory view after a remote failure",
		},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics instrumenta cada requisição com contagem e duração.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern reduz o path ao padrão da rota antes de usá-lo como label.
// Os ids compostos (tabela:id) e os ids de conta são ilimitados e explodiriam
// a cardinalidade das séries.
func routePattern(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/leads/") && path != "/v1/leads/":
		return "/v1/leads/{id}"
	case strings.HasPrefix(path, "/v1/users/") && path != "/v1/users/":
		rest := strings.TrimPrefix(path, "/v1/users/")
		if i := strings.Index(rest, "/"); i >= 0 {
			return "/v1/users/{id}/" + rest[i+1:]
		}
		return "/v1/users/{id}"
	}
	return path
}

// RecordLeadWrite registra uma operação de escrita de lead e seu desfecho
// ("remote" quando a escrita chegou ao banco, "local" quando só a visão em
// memória foi alterada).
func RecordLeadWrite(operation, outcome string) {
	leadWrites.WithLabelValues(operation, outcome).Inc()
	if outcome == "local" {
		localFallbacks.Inc()
	}
}

// RecordLoginAttempt registra uma tentativa de login ("success", "failure"
// ou "fallback" para o acesso de emergência).
func RecordLoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}
