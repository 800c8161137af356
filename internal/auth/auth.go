package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/krwhynot/pantry-crm/internal"
)

var (
	ErrInvalidCredentials = internal.ErrInvalidCredentials
	ErrUserInactive       = internal.ErrUserInactive
	ErrInvalidToken       = internal.ErrInvalidToken
	ErrTokenExpired       = internal.ErrTokenExpired
)

// Role levels. Higher levels include everything below them.
const (
	LevelSalesRep = 1
	LevelManager  = 2
	LevelAdmin    = 3
)

// PermissionWildcard grants every action on every resource.
const PermissionWildcard = "*"

// User is the authenticated principal carried in request context. Permissions
// are flattened "resource:action" strings plus the wildcard for admins.
type User struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	RoleLevel   int      `json:"role_level"`
	Permissions []string `json:"permissions,omitempty"`
}

// Can reports whether the user may perform an action on a resource.
func (u *User) Can(resource, action string) bool {
	want := resource + ":" + action
	for _, p := range u.Permissions {
		if p == PermissionWildcard || p == want {
			return true
		}
	}
	return false
}

func (u *User) HasAnyPermission(required []string) bool {
	for _, p := range u.Permissions {
		if p == PermissionWildcard {
			return true
		}
		for _, r := range required {
			if p == r {
				return true
			}
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleLevel >= LevelAdmin
}

func (u *User) IsManager() bool {
	return u.RoleLevel >= LevelManager
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims for both token kinds. SessionID ties the token to
// a server-side session so tokens die when their session is invalidated.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenGeneratorAPI creates and validates signed tokens.
type TokenGeneratorAPI interface {
	GenerateAccessToken(userID int64, email, sessionID string) (string, error)
	GenerateRefreshToken(userID int64, email, sessionID string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTTL() time.Duration
}

// SessionManager is the slice of the session service auth needs. Sessions are
// tracked by ID only; Refresh returns the ID the session carries afterwards,
// which differs from the input when rotation is enabled.
type SessionManager interface {
	Create(userID int64, ipAddress, userAgent string) (sessionID string, err error)
	Validate(sessionID string) error
	Refresh(sessionID, ipAddress string) (newID string, err error)
	Invalidate(sessionID string) error
	InvalidateAll(userID int64) error
}

// PermissionSource resolves a user's effective permissions and role level.
type PermissionSource interface {
	PermissionsForUser(userID int64) ([]string, error)
	MaxLevelForUser(userID int64) (int, error)
}

type ServiceAPI interface {
	Login(dto LoginDTO, ipAddress, userAgent string) (AuthTokens, error)
	Refresh(refreshToken, ipAddress string) (AuthTokens, error)
	Logout(accessToken string) error
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetUserWithPermissions(userID int64) (*User, error)
	HashPassword(password string) (string, error)
}

type ctxKey string

const ContextUserKey ctxKey = "authUser"

// UserFromContext returns the authenticated user placed by the auth middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(ContextUserKey).(*User)
	return user, ok
}

// ContextWithUser attaches the authenticated user to the context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, user)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// PermissionString flattens a resource and action into the context format.
func PermissionString(resource, action string) string {
	return strings.TrimSpace(resource) + ":" + strings.TrimSpace(action)
}
