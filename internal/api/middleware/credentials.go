package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const (
	bearerTokenKey contextKey = "bearer_token"
	callerKeyKey   contextKey = "caller_key"
)

// Credentials extracts the bearer token and the caller key from the request and stores them in
// the context. It never rejects; rate limiting and token verification happen in the service.
func Credentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), bearerTokenKey, parseBearer(r.Header.Get("Authorization")))
		ctx = context.WithValue(ctx, callerKeyKey, remoteHost(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken returns the token stored by Credentials, or "" when the header was missing or malformed.
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey).(string)

	return token
}

// CallerKey returns the rate-limit key stored by Credentials.
func CallerKey(ctx context.Context) string {
	key, _ := ctx.Value(callerKeyKey).(string)

	return key
}

// parseBearer expects "Bearer <token>", scheme case-insensitive.
func parseBearer(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
