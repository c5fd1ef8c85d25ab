// Package identity resolves the client session a stream request belongs to.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionHeaderName carries the client session ID.
	SessionHeaderName = "X-Campaign-Session-ID"
	// SessionQueryParam is the query fallback for clients that cannot set
	// headers (EventSource in browsers).
	SessionQueryParam = "session_id"

	anonymousPrefix = "anon-"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	anonymousKey
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SessionIDFromContext extracts the client session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// IsAnonymous reports whether the session ID in ctx was generated because the
// client did not send one. Anonymous sessions never collide with each other.
func IsAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey).(bool)
	return v
}

// WithSessionID returns a context carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get(SessionQueryParam)
	}
	return sanitizeSessionID(sid)
}

// Middleware injects the client session ID into the request context. Requests
// without a valid ID get a fresh anonymous one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionIDFromRequest(r)
		anonymous := sessionID == ""
		if anonymous {
			sessionID = anonymousPrefix + uuid.NewString()
		}

		ctx := WithSessionID(r.Context(), sessionID)
		ctx = context.WithValue(ctx, anonymousKey, anonymous)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IPFromRequest returns a normalized remote IP for rate limiting and logs.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
