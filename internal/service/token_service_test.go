package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/station-compliance-api/internal/models"
	appErrors "github.com/noah-isme/station-compliance-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, expiresAt, err := svc.Issue("u-1", "Jane Mwangi", models.RoleStationManager, "ST-001")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleStationManager, claims.Role)
	assert.Equal(t, "ST-001", claims.StationID)

	principal := Principal(claims, token)
	assert.Equal(t, "Jane Mwangi", principal.DisplayName)
	assert.Equal(t, token, principal.Token)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	svc.now = func() time.Time { return fixedNow }
	token, _, err := svc.Issue("u-1", "Jane", models.RoleAdmin, "")
	require.NoError(t, err)

	svc.now = func() time.Time { return fixedNow.Add(2 * time.Minute) }
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsForeignSecretAndAlgorithm(t *testing.T) {
	other := NewTokenService("other", time.Hour)
	token, _, err := other.Issue("u-1", "Jane", models.RoleViewer, "")
	require.NoError(t, err)

	svc := NewTokenService("secret", time.Hour)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.Error(t, err)
}

func TestPrincipalFallsBackToEmail(t *testing.T) {
	principal := Principal(&models.JWTClaims{UserID: "u-2", Email: "ops@example.com", Role: models.RoleViewer}, "tok")
	assert.Equal(t, "ops@example.com", principal.DisplayName)
	assert.Equal(t, "viewer", principal.Role)
}
