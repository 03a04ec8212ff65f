package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sautihq/sauti-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "sauti-backend",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()

	payload := AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     "admin",
	}

	token, err := MintAccessToken(cfg, now, payload)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, payload.UserID, claims.UserID)
	require.Equal(t, payload.TenantID, claims.TenantID)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, cfg.Issuer, claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessToken_PreservesJTI(t *testing.T) {
	cfg := testJWTConfig()

	payload := AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		JTI:      "custom-jti",
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, "custom-jti", claims.ID)
}

func TestMintAccessToken_Validation(t *testing.T) {
	base := AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New()}

	missingSecret := testJWTConfig()
	missingSecret.Secret = ""
	_, err := MintAccessToken(missingSecret, time.Now(), base)
	require.Error(t, err)

	missingIssuer := testJWTConfig()
	missingIssuer.Issuer = ""
	_, err = MintAccessToken(missingIssuer, time.Now(), base)
	require.Error(t, err)

	_, err = MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{TenantID: uuid.New()})
	require.Error(t, err)

	_, err = MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New()})
	require.Error(t, err)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	cfg := testJWTConfig()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New()})
	require.NoError(t, err)

	bad := cfg
	bad.Secret = "other-secret"
	_, err = ParseAccessToken(bad, token)
	require.Error(t, err)
}

func TestParseAccessToken_WrongIssuer(t *testing.T) {
	cfg := testJWTConfig()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New()})
	require.NoError(t, err)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)
}

func TestParseAccessToken_Expired(t *testing.T) {
	cfg := testJWTConfig()

	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseAccessToken_RejectsUnsignedToken(t *testing.T) {
	cfg := testJWTConfig()

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}
