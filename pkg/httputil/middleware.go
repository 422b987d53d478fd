package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/visaeval/visaeval-backend/pkg/logger"
)

type contextKey string

const (
	RequestIDKey  contextKey = "request_id"
	PartnerKeyKey contextKey = "partner_key"
)

// PartnerKeyHeader identifies the integrating partner. It is recorded with
// evaluations and in logs; it is not an authentication mechanism.
const PartnerKeyHeader = "X-Partner-Key"

// RequestID middleware adds a request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PartnerKey copies the X-Partner-Key header into the request context.
func PartnerKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(PartnerKeyHeader); key != "" {
			r = r.WithContext(WithPartnerKey(r.Context(), key))
		}
		next.ServeHTTP(w, r)
	})
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			RequestLogger(log, r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// RequestLogger scopes log to the request ID and partner key carried by r.
func RequestLogger(log *logger.Logger, r *http.Request) *logger.Logger {
	scoped := log.WithRequestID(GetRequestID(r.Context()))
	if key := GetPartnerKey(r.Context()); key != "" {
		scoped = scoped.WithPartnerKey(key)
	}
	return scoped
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					RequestLogger(log, r).Error().
						Interface("panic", err).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (rw *StatusRecorder) WriteHeader(code int) {
	rw.Status = code
	rw.ResponseWriter.WriteHeader(code)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func GetPartnerKey(ctx context.Context) string {
	if key, ok := ctx.Value(PartnerKeyKey).(string); ok {
		return key
	}
	return ""
}

func WithPartnerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, PartnerKeyKey, key)
}
