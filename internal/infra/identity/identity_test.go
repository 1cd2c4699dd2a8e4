package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/points-dashboard/pkg/errors"
)

const testIssuer = "https://issuer.example.com"

func TestClaimsReaderReadsSubjectAndExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	creds, err := NewClaimsReader().Verify(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, raw, creds.Token)
	require.Equal(t, "user-7", creds.Subject)
	require.True(t, exp.Equal(creds.ExpiresAt))
}

func TestClaimsReaderAcceptsOpaqueTokens(t *testing.T) {
	creds, err := NewClaimsReader().Verify(context.Background(), " opaque-session-token ")
	require.NoError(t, err)
	require.Equal(t, "opaque-session-token", creds.Token)
	require.Empty(t, creds.Subject)
	require.True(t, creds.ExpiresAt.IsZero())

	_, err = NewClaimsReader().Verify(context.Background(), "")
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := &OIDCVerifier{
		verifier: oidc.NewVerifier(testIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, &oidc.Config{ClientID: "dashboard"}),
	}

	sign := func(aud string) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss": testIssuer,
			"aud": aud,
			"sub": "alice",
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString(key)
		require.NoError(t, err)
		return raw
	}

	creds, err := v.Verify(context.Background(), sign("dashboard"))
	require.NoError(t, err)
	require.Equal(t, "alice", creds.Subject)
	require.False(t, creds.ExpiresAt.IsZero())

	_, err = v.Verify(context.Background(), sign("someone-else"))
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}
