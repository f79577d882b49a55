package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/timebill/backend/internal/infrastructure/auth"
)

func roleTokenInput(role string) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Username: "testuser",
		Role:     role,
	}
}

func roleTestRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddleware(newTestJWTService()), mw)
	router.POST("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doRoleRequest(t *testing.T, router *gin.Engine, role string) *httptest.ResponseRecorder {
	t.Helper()
	input := roleTokenInput(role)
	pair, err := newTestJWTService().GenerateTokenPair(input)
	if err != nil {
		t.Fatalf("generate token pair: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	router := roleTestRouter(RequireRole("admin", "manager"))

	rec := doRoleRequest(t, router, "manager")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_RejectsOtherRole(t *testing.T) {
	router := roleTestRouter(RequireRole("admin", "manager"))

	rec := doRoleRequest(t, router, "member")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestRequireRole_WithoutClaims(t *testing.T) {
	router := gin.New()
	router.Use(RequireRole("admin"))
	router.POST("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireBillingManager(t *testing.T) {
	tests := []struct {
		role     string
		expected int
	}{
		{"admin", http.StatusOK},
		{"manager", http.StatusOK},
		{"member", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			router := roleTestRouter(RequireBillingManager())
			rec := doRoleRequest(t, router, tt.role)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}
