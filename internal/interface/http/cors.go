package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const preflightMaxAge = "600"

// corsMiddleware lets the dashboard frontend call the gateway from its own origin.
// Specific origins get credentialed responses; a "*" entry opens the API to any
// origin without credentials. Requests from unlisted origins get no CORS headers.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	policy := newOriginPolicy(allowed)
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		headers.Add("Vary", "Origin")

		if origin, ok := policy.match(c.GetHeader("Origin")); ok {
			headers.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				headers.Set("Access-Control-Allow-Credentials", "true")
			}
			headers.Set("Access-Control-Expose-Headers", "X-Request-ID")
			if c.Request.Method == http.MethodOptions {
				headers.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, Last-Event-ID")
				headers.Set("Access-Control-Max-Age", preflightMaxAge)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type originPolicy struct {
	any     bool
	origins map[string]struct{}
}

func newOriginPolicy(allowed []string) originPolicy {
	policy := originPolicy{origins: make(map[string]struct{}, len(allowed))}
	if len(allowed) == 0 {
		policy.any = true
	}
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
		switch origin {
		case "":
		case "*":
			policy.any = true
		default:
			policy.origins[origin] = struct{}{}
		}
	}
	return policy
}

func (p originPolicy) match(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok {
		return origin, true
	}
	if p.any {
		return "*", true
	}
	return "", false
}
