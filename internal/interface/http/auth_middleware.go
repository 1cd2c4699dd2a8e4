package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
	apperrors "github.com/yanqian/points-dashboard/pkg/errors"
)

// TokenVerifier resolves a bearer token into session credentials.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (dashboard.Credentials, error)
}

func authMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header", nil))
			return
		}
		creds, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			status := http.StatusForbidden
			code := "invalid_token"
			if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
				status = http.StatusInternalServerError
				code = "auth_failed"
			}
			abortWithError(c, NewHTTPError(status, code, apperrors.MessageOf(err), err))
			return
		}
		setCredentials(c, creds)
		c.Next()
	}
}

// bearerToken reads the Authorization header. EventSource cannot set
// headers, so the stream endpoint also accepts an access_token query value.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		token := strings.TrimSpace(parts[1])
		return token, token != ""
	}
	if c.Request.Method == http.MethodGet {
		if token := strings.TrimSpace(c.Query("access_token")); token != "" {
			return token, true
		}
	}
	return "", false
}
