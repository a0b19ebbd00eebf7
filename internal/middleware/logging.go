package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// RequestLogger logs every request after the handler chain returns. Paths in
// skip are not logged.
func RequestLogger(logger *slog.Logger, skip ...string) drift.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(c *drift.Context) {
		path := c.Request.URL.Path
		if skipped[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if uid := GetUserID(c); uid != uuid.Nil {
			attrs = append(attrs, "user_id", uid)
		}
		logger.InfoContext(c.Request.Context(), "http request", attrs...)
	}
}
