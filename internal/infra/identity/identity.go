package identity

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
	apperrors "github.com/yanqian/points-dashboard/pkg/errors"
)

// Verifier turns a raw bearer token into session credentials.
type Verifier interface {
	Verify(ctx context.Context, raw string) (dashboard.Credentials, error)
}

// OIDCVerifier validates ID tokens against an OpenID Connect issuer.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and builds a verifier for clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, apperrors.Wrap("identity_error", "failed to initialize oidc provider", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (dashboard.Credentials, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dashboard.Credentials{}, apperrors.Wrap(apperrors.CodeUnauthorized, "bearer token required", nil)
	}
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return dashboard.Credentials{}, apperrors.Wrap(apperrors.CodeUnauthorized, "invalid bearer token", err)
	}
	return dashboard.Credentials{
		Token:     raw,
		Subject:   token.Subject,
		ExpiresAt: token.Expiry,
	}, nil
}

// ClaimsReader accepts any token and lets the points backend decide. JWT
// claims are read without verification, only to label logs and to expire
// the session cache with the token.
type ClaimsReader struct {
	parser *jwt.Parser
}

// NewClaimsReader builds a ClaimsReader.
func NewClaimsReader() *ClaimsReader {
	return &ClaimsReader{parser: jwt.NewParser()}
}

func (r *ClaimsReader) Verify(_ context.Context, raw string) (dashboard.Credentials, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dashboard.Credentials{}, apperrors.Wrap(apperrors.CodeUnauthorized, "bearer token required", nil)
	}
	creds := dashboard.Credentials{Token: raw}

	var claims jwt.RegisteredClaims
	if _, _, err := r.parser.ParseUnverified(raw, &claims); err != nil {
		// opaque token
		return creds, nil
	}
	creds.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		creds.ExpiresAt = claims.ExpiresAt.Time
	}
	return creds, nil
}
