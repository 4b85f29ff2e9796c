// Package trace tags each request with an ID and logs its lifecycle.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"finreport/internal/log"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions. Incoming values
// are kept only when they parse as a UUID.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Metrics is a snapshot of served traffic.
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime time.Duration
}

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.Logger

	served atomic.Int64
	micros atomic.Int64
}

// NewMiddleware builds the tracer. clientIP may be nil.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Middleware{clientIP: clientIP, logger: logger}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := incomingOrNewID(r.Header.Get(RequestIDHeader))
		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}
		w.Header().Set(RequestIDHeader, id)

		reqLogger := m.logger.With(log.FieldRequestID, id, log.FieldClientIP, ip)
		ctx := log.NewContext(context.WithValue(r.Context(), requestIDKey{}, id), reqLogger)
		r = r.WithContext(ctx)

		records := log.NewStructuredLogger(reqLogger)
		records.LogHTTPStart(ctx, r, ip)

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.served.Add(1)
		m.micros.Add(elapsed.Microseconds())
		records.LogHTTPEnd(ctx, r, sw.code(), elapsed.Milliseconds(), ip)
	})
}

// Metrics reports totals since the middleware was built.
func (m *Middleware) Metrics() Metrics {
	n := m.served.Load()
	if n == 0 {
		return Metrics{}
	}
	return Metrics{
		TotalRequests:       n,
		AverageResponseTime: time.Duration(m.micros.Load()/n) * time.Microsecond,
	}
}

// RequestID returns the ID the middleware stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func incomingOrNewID(id string) string {
	if id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

// statusWriter remembers the first status written.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
