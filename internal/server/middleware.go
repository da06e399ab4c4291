package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"scoreboard/pkg/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// ContextWithRequestID stores id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id set by the request-id middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID accepts a caller-supplied UUID or generates one, and echoes it
// in the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		id := logging.Truncate(RequestIDFromContext(r.Context()))
		elapsed := time.Since(start).Round(time.Millisecond)

		// Query strings are not logged: the callback carries the code.
		switch {
		case r.URL.Path == "/healthz" || r.URL.Path == "/metrics":
			logging.Debug("Server", "%s %s %d %s request_id=%s", r.Method, r.URL.Path, status, elapsed, id)
		case status >= 500:
			logging.Warn("Server", "%s %s %d %s request_id=%s", r.Method, r.URL.Path, status, elapsed, id)
		default:
			logging.Info("Server", "%s %s %d %s request_id=%s", r.Method, r.URL.Path, status, elapsed, id)
		}
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// sameOrigin rejects browser requests sent from another site. Requests
// without Origin or Sec-Fetch-Site headers come from non-browser clients
// and pass.
func sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if site := r.Header.Get("Sec-Fetch-Site"); site == "cross-site" || site == "same-site" {
			rejectCrossOrigin(w, r, site)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			u, err := url.Parse(origin)
			if err != nil || u.Host != r.Host {
				rejectCrossOrigin(w, r, origin)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func rejectCrossOrigin(w http.ResponseWriter, r *http.Request, from string) {
	logging.Audit(logging.AuditEvent{
		Action:  "cross_origin_request",
		Outcome: "denied",
		Subject: r.Method + " " + r.URL.Path,
		Detail:  from,
	})
	writeJSON(w, http.StatusForbidden, ErrorBody{
		Error:     CodeForbidden,
		Message:   "cross-origin request rejected",
		RequestID: RequestIDFromContext(r.Context()),
	})
}
