package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/internal/service"
	"github.com/noah-isme/station-compliance-api/internal/session"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAuthRouter(tokens *service.TokenService, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := func(c *gin.Context) {
		principal, _ := session.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": principal.UserID, "name": principal.DisplayName})
	}
	r.GET("/stations/:stationId/documents", JWT(tokens), RBAC(roles...), handler)
	r.GET("/open", OptionalJWT(tokens), handler)
	return r
}

func issue(t *testing.T, tokens *service.TokenService, role models.UserRole, station string) string {
	t.Helper()
	token, _, err := tokens.Issue("u-7", "Amina Otieno", role, station)
	require.NoError(t, err)
	return token
}

func perform(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAttachesPrincipal(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	r := newAuthRouter(tokens, models.RoleStationManager, models.RoleViewer)

	w := perform(r, "/stations/ST-001/documents", issue(t, tokens, models.RoleViewer, ""))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u-7", body["user"])
	assert.Equal(t, "Amina Otieno", body["name"])
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	r := newAuthRouter(tokens, models.RoleViewer)

	w := perform(r, "/stations/ST-001/documents", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/stations/ST-001/documents", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	assert.Equal(t, "invalid authorization header", env.Error.Message)
}

func TestRBACRoleAndStationScope(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	r := newAuthRouter(tokens, models.RoleStationManager)

	w := perform(r, "/stations/ST-001/documents", issue(t, tokens, models.RoleViewer, ""))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, "/stations/ST-001/documents", issue(t, tokens, models.RoleStationManager, "ST-001"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, "/stations/ST-002/documents", issue(t, tokens, models.RoleStationManager, "ST-001"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, "/stations/ST-002/documents", issue(t, tokens, models.RoleAdmin, "ST-001"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalJWTIgnoresBadTokens(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	r := newAuthRouter(tokens)

	w := perform(r, "/open", "garbage")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body["user"])
}

func TestResponseMetaCollectsEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetMeta(c, "source", "local")
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	w := perform(r, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "local", meta["source"])
	assert.Contains(t, meta, "processing_time_ms")
}
