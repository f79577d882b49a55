package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	TenantSlug string
	Email      string
	Password   string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// UserInfo contains basic user information returned after login
type UserInfo struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Email    string
	Name     string
	Role     string
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	TokenJTI string
	TokenTTL time.Duration
}

// GetCurrentUserInput identifies the user whose profile is requested
type GetCurrentUserInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// CurrentUserResult contains the current user's profile
type CurrentUserResult struct {
	User UserInfo
}

// ChangePasswordInput contains the input for a password change
type ChangePasswordInput struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// CreateUserInput contains the input for creating a user
type CreateUserInput struct {
	TenantID uuid.UUID
	Email    string
	Name     string
	Password string
	Role     identity.Role
}

// ChangeUserRoleInput contains the input for a role change
type ChangeUserRoleInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     identity.Role
}

// CreateTenantInput contains the input for provisioning a tenant
type CreateTenantInput struct {
	Name string
	Slug string

	// Initial admin account created alongside the tenant
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// CreateTenantResult contains the provisioned tenant and admin
type CreateTenantResult struct {
	TenantID uuid.UUID
	Slug     string
	Admin    UserInfo
}

func userInfoOf(user *identity.User) UserInfo {
	return UserInfo{
		ID:       user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role.String(),
	}
}
