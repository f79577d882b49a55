package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	identityapp "github.com/timebill/backend/internal/application/identity"
	"github.com/timebill/backend/internal/domain/identity"
	"github.com/timebill/backend/internal/domain/shared"
	"github.com/timebill/backend/internal/infrastructure/auth"
	"github.com/timebill/backend/internal/infrastructure/config"
	"github.com/timebill/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "timebill-test",
		MaxRefreshCount:        10,
	}
}

type fakeTenantRepository struct {
	tenants map[uuid.UUID]*identity.Tenant
}

func newFakeTenantRepository() *fakeTenantRepository {
	return &fakeTenantRepository{tenants: make(map[uuid.UUID]*identity.Tenant)}
}

func (f *fakeTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	if tenant, ok := f.tenants[id]; ok {
		return tenant, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	for _, tenant := range f.tenants {
		if tenant.Slug == slug {
			return tenant, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	f.tenants[tenant.ID] = tenant
	return nil
}

type fakeTokenBlacklist struct {
	blacklisted map[string]time.Duration
}

func newFakeTokenBlacklist() *fakeTokenBlacklist {
	return &fakeTokenBlacklist{blacklisted: make(map[string]time.Duration)}
}

func (f *fakeTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	f.blacklisted[jti] = ttl
	return nil
}

func (f *fakeTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, ok := f.blacklisted[jti]
	return ok, nil
}

func (f *fakeTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error {
	f.blacklisted["user:"+userID] = ttl
	return nil
}

func (f *fakeTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	return false, nil
}

type authTestFixture struct {
	tenant     *identity.Tenant
	user       *identity.User
	userRepo   *fakeUserRepository
	tenantRepo *fakeTenantRepository
	blacklist  *fakeTokenBlacklist
	jwtService *auth.JWTService
	router     *gin.Engine
}

func newAuthTestFixture(t *testing.T) *authTestFixture {
	t.Helper()

	tenant, err := identity.NewTenant("Acme Consulting", "acme")
	require.NoError(t, err)

	user, err := identity.NewUser(tenant.ID, "dana@acme.com", "Dana Reed", "correct-horse-9", identity.RoleManager)
	require.NoError(t, err)

	f := &authTestFixture{
		tenant:     tenant,
		user:       user,
		userRepo:   newFakeUserRepository(),
		tenantRepo: newFakeTenantRepository(),
		blacklist:  newFakeTokenBlacklist(),
		jwtService: auth.NewJWTService(testJWTConfig()),
	}
	require.NoError(t, f.tenantRepo.Save(context.Background(), tenant))
	require.NoError(t, f.userRepo.Save(context.Background(), user))

	authService := identityapp.NewAuthService(f.userRepo, f.tenantRepo, f.jwtService, f.blacklist, zap.NewNop())
	h := NewAuthHandler(authService)

	router := gin.New()
	authGroup := router.Group("/api/v1/auth")
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.RefreshToken)

	protected := router.Group("/api/v1/auth")
	protected.Use(middleware.JWTAuthMiddleware(f.jwtService))
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.GetCurrentUser)
	protected.PUT("/password", h.ChangePassword)

	f.router = router
	return f
}

func (f *authTestFixture) post(path, token string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *authTestFixture) login(t *testing.T) LoginResponse {
	t.Helper()
	w := f.post("/api/v1/auth/login", "", gin.H{
		"tenant":   "acme",
		"email":    "dana@acme.com",
		"password": "correct-horse-9",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result LoginResponse
	decodeData(t, w, &result)
	return result
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns a token pair and the user profile", func(t *testing.T) {
		f := newAuthTestFixture(t)

		result := f.login(t)

		assert.NotEmpty(t, result.Token.AccessToken)
		assert.NotEmpty(t, result.Token.RefreshToken)
		assert.Equal(t, "Bearer", result.Token.TokenType)
		assert.Equal(t, f.user.ID, result.User.ID)
		assert.Equal(t, "manager", result.User.Role)
	})

	t.Run("rejects a wrong password as unauthorized", func(t *testing.T) {
		f := newAuthTestFixture(t)

		w := f.post("/api/v1/auth/login", "", gin.H{
			"tenant":   "acme",
			"email":    "dana@acme.com",
			"password": "wrong-password-1",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
	})

	t.Run("masks an unknown tenant as bad credentials", func(t *testing.T) {
		f := newAuthTestFixture(t)

		w := f.post("/api/v1/auth/login", "", gin.H{
			"tenant":   "nobody",
			"email":    "dana@acme.com",
			"password": "correct-horse-9",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a suspended tenant with forbidden", func(t *testing.T) {
		f := newAuthTestFixture(t)
		f.tenant.Suspend()

		w := f.post("/api/v1/auth/login", "", gin.H{
			"tenant":   "acme",
			"email":    "dana@acme.com",
			"password": "correct-horse-9",
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_ACCOUNT_INACTIVE")
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		f := newAuthTestFixture(t)

		w := f.post("/api/v1/auth/login", "", gin.H{"tenant": "acme"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Run("exchanges a refresh token for a new pair", func(t *testing.T) {
		f := newAuthTestFixture(t)
		login := f.login(t)

		w := f.post("/api/v1/auth/refresh", "", gin.H{
			"refresh_token": login.Token.RefreshToken,
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result RefreshTokenResponse
		decodeData(t, w, &result)
		assert.NotEmpty(t, result.Token.AccessToken)
		assert.NotEqual(t, login.Token.AccessToken, result.Token.AccessToken)
	})

	t.Run("rejects garbage tokens as unauthorized", func(t *testing.T) {
		f := newAuthTestFixture(t)

		w := f.post("/api/v1/auth/refresh", "", gin.H{
			"refresh_token": "not-a-token",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects refresh for a deactivated user", func(t *testing.T) {
		f := newAuthTestFixture(t)
		login := f.login(t)
		f.user.Deactivate()

		w := f.post("/api/v1/auth/refresh", "", gin.H{
			"refresh_token": login.Token.RefreshToken,
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("blacklists the access token", func(t *testing.T) {
		f := newAuthTestFixture(t)
		login := f.login(t)

		w := f.post("/api/v1/auth/logout", login.Token.AccessToken, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, f.blacklist.blacklisted, 1)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newAuthTestFixture(t)

		w := f.post("/api/v1/auth/logout", "", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	f := newAuthTestFixture(t)
	login := f.login(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token.AccessToken)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result CurrentUserResponse
	decodeData(t, w, &result)
	assert.Equal(t, f.user.ID, result.User.ID)
	assert.Equal(t, "dana@acme.com", result.User.Email)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	t.Run("changes the password with the old one verified", func(t *testing.T) {
		f := newAuthTestFixture(t)
		login := f.login(t)

		raw, _ := json.Marshal(gin.H{
			"old_password": "correct-horse-9",
			"new_password": "battery-staple-7",
		})
		req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/password", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+login.Token.AccessToken)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, f.user.VerifyPassword("battery-staple-7"))
	})

	t.Run("rejects a wrong old password", func(t *testing.T) {
		f := newAuthTestFixture(t)
		login := f.login(t)

		raw, _ := json.Marshal(gin.H{
			"old_password": "wrong-old-pass1",
			"new_password": "battery-staple-7",
		})
		req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/password", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+login.Token.AccessToken)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, f.user.VerifyPassword("correct-horse-9"))
	})
}
