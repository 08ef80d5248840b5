package api

import (
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/framebridge/internal/logging"
)

// HTTPLoggingMiddleware logs each request at a level chosen by its status code.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if q := ctx.URL().RawQuery; q != "" {
		attrs = append(attrs, slog.String("query", q))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	level := slog.LevelDebug
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	case method == http.MethodOptions:
	case strings.HasPrefix(ctx.URL().Path, "/api/events"):
		// Stream connections would otherwise flood the buffer on reconnect.
	default:
		level = slog.LevelInfo
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

// corsMiddleware allows read-only cross-origin access from dashboards.
func corsMiddleware(ctx huma.Context, next func(huma.Context)) {
	ctx.SetHeader("Access-Control-Allow-Origin", "*")
	ctx.SetHeader("Access-Control-Allow-Methods", "GET, OPTIONS")
	ctx.SetHeader("Access-Control-Allow-Headers", "Authorization, Accept")
	if ctx.Method() == http.MethodOptions {
		ctx.SetStatus(http.StatusNoContent)
		return
	}
	next(ctx)
}

// basicAuthMiddleware guards operations that declare a security requirement.
// The auth query parameter carries base64 credentials for EventSource clients,
// which cannot set headers.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	want := []byte(username + ":" + password)
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded, ok := strings.CutPrefix(ctx.Header("Authorization"), "Basic ")
		if !ok {
			encoded = ctx.Query("auth")
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if encoded == "" || err != nil || subtle.ConstantTimeCompare(decoded, want) != 1 {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="framebridge"`)
			_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(ctx)
	}
}
