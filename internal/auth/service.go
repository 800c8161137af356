package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/krwhynot/pantry-crm/internal"
)

// RepositoryAPI is the credential store behind the auth service.
type RepositoryAPI interface {
	GetCredentialsByEmail(email string) (userID int64, passwordHash string, isActive bool, err error)
	GetUserByID(userID int64) (*User, error)
	UpdateLastLogin(userID int64, at time.Time) error
}

type Service struct {
	repo        RepositoryAPI
	tokens      TokenGeneratorAPI
	sessions    SessionManager
	permissions PermissionSource
	bcryptCost  int
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, sessions SessionManager, permissions PermissionSource, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		sessions:    sessions,
		permissions: permissions,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Login verifies credentials, opens a session and issues a token pair bound
// to that session.
func (s *Service) Login(dto LoginDTO, ipAddress, userAgent string) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	userID, storedHash, isActive, err := s.repo.GetCredentialsByEmail(dto.Email)
	if err != nil {
		s.logger.Warn("login failed: unknown email", "email", dto.Email)
		return AuthTokens{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: bad password", "user_id", userID)
		return AuthTokens{}, ErrInvalidCredentials
	}

	if !isActive {
		return AuthTokens{}, ErrUserInactive
	}

	sessionID, err := s.sessions.Create(userID, ipAddress, userAgent)
	if err != nil {
		return AuthTokens{}, err
	}

	tokens, err := s.issueTokens(userID, dto.Email, sessionID)
	if err != nil {
		return AuthTokens{}, err
	}

	if err := s.repo.UpdateLastLogin(userID, time.Now()); err != nil {
		s.logger.Warn("failed to record last login", "error", err, "user_id", userID)
	}

	s.logger.Info("user logged in", "user_id", userID, "session_id", sessionID)
	return tokens, nil
}

// Refresh exchanges a valid refresh token for a new pair. The underlying
// session is refreshed as well, which may rotate its ID.
func (s *Service) Refresh(refreshToken, ipAddress string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	sessionID, err := s.sessions.Refresh(claims.SessionID, ipAddress)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	return s.issueTokens(user.ID, user.Email, sessionID)
}

// Logout invalidates the session behind the presented access token.
func (s *Service) Logout(accessToken string) error {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return err
	}
	if claims.SessionID == "" {
		return ErrInvalidToken
	}
	return s.sessions.Invalidate(claims.SessionID)
}

// ValidateAccessToken checks the token signature and the session behind it.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.SessionID != "" {
		if err := s.sessions.Validate(claims.SessionID); err != nil {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}

// GetUserWithPermissions loads the user plus their effective permissions and
// role level for the request context.
func (s *Service) GetUserWithPermissions(userID int64) (*User, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	perms, err := s.permissions.PermissionsForUser(userID)
	if err != nil {
		s.logger.Error("failed to load permissions", "error", err, "user_id", userID)
		return nil, err
	}
	user.Permissions = perms

	level, err := s.permissions.MaxLevelForUser(userID)
	if err != nil {
		s.logger.Error("failed to load role level", "error", err, "user_id", userID)
		return nil, err
	}
	user.RoleLevel = level

	return user, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

func (s *Service) issueTokens(userID int64, email, sessionID string) (AuthTokens, error) {
	accessToken, err := s.tokens.GenerateAccessToken(userID, email, sessionID)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err, "user_id", userID)
		return AuthTokens{}, internal.NewInternalError("failed to issue tokens", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(userID, email, sessionID)
	if err != nil {
		s.logger.Error("failed to sign refresh token", "error", err, "user_id", userID)
		return AuthTokens{}, internal.NewInternalError("failed to issue tokens", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

func (j *JWTTokenGenerator) AccessTTL() time.Duration {
	return j.AccessTokenTTL
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, email, sessionID string) (string, error) {
	return j.sign(userID, email, sessionID, TokenTypeAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID int64, email, sessionID string) (string, error) {
	return j.sign(userID, email, sessionID, TokenTypeRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID int64, email, sessionID, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	subject := strconv.FormatInt(userID, 10)

	claims := &Claims{
		UserID:    subject,
		Email:     email,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) validate(tokenString, wantType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
