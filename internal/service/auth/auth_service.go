package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storeadmin/internal/repository"
	"storeadmin/internal/utils"
	"storeadmin/pkg/log"
	pkgutils "storeadmin/pkg/utils"
)

// LoginRequest login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// accessTokenTTL how long an access token and its redis mirror live
const accessTokenTTL = 2 * time.Hour

// AuthService staff authentication service interface
type AuthService interface {
	// Login staff user
	Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error)

	// Logout staff user
	Logout(ctx context.Context, userID uint64, token string) error

	// Validate token
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)

	// Refresh token
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// Change password
	ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error
}

// authService authentication service implementation
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	redis      *redis.Client
}

// NewAuthService creates an authentication service
func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	redis *redis.Client,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		redis:      redis,
	}
}

// Login logs a staff user in
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"username": req.Username,
		}).Warn("Login for unknown user")
		return nil, pkgutils.NewError(pkgutils.CodeUnauthorized, "username or password incorrect")
	}

	if !user.IsActive() {
		return nil, pkgutils.NewError(pkgutils.CodeForbidden, "account disabled")
	}

	if !pkgutils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, pkgutils.NewError(pkgutils.CodeUnauthorized, "username or password incorrect")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, pkgutils.WrapError(err, pkgutils.CodeInternalError, "token generation failed")
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, pkgutils.WrapError(err, pkgutils.CodeInternalError, "token generation failed")
	}

	// mirror the token so logout can revoke it before expiry
	s.redis.Set(ctx, tokenKey(user.ID), accessToken, accessTokenTTL)
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.WithError(err).Warn("Failed to stamp last login")
	}

	log.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("Staff login")

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// Logout revokes the user's current token
func (s *authService) Logout(ctx context.Context, userID uint64, token string) error {
	s.redis.Del(ctx, tokenKey(userID))
	s.redis.Set(ctx, blacklistKey(token), "1", accessTokenTTL)

	log.WithFields(map[string]interface{}{
		"user_id": userID,
	}).Info("Staff logout")
	return nil
}

// ValidateToken validates a token against the signature, the blacklist
// and the per-user redis mirror
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	exists, _ := s.redis.Exists(ctx, blacklistKey(token)).Result()
	if exists > 0 {
		return nil, pkgutils.ErrTokenInvalid
	}

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, pkgutils.ErrTokenInvalid
	}

	stored, err := s.redis.Get(ctx, tokenKey(claims.UserID)).Result()
	if err != nil || stored != token {
		return nil, pkgutils.ErrTokenInvalid
	}
	return claims, nil
}

// RefreshToken issues a fresh access token from a refresh token
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, pkgutils.ErrTokenInvalid
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, pkgutils.ErrTokenInvalid
	}
	if !user.IsActive() {
		return nil, pkgutils.NewError(pkgutils.CodeForbidden, "account disabled")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, pkgutils.WrapError(err, pkgutils.CodeInternalError, "token generation failed")
	}

	s.redis.Set(ctx, tokenKey(user.ID), accessToken, accessTokenTTL)

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ChangePassword verifies the old password and stores the new hash
func (s *authService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !pkgutils.CheckPassword(oldPassword, user.PasswordHash) {
		return pkgutils.NewError(pkgutils.CodeUnauthorized, "old password incorrect")
	}
	if len(newPassword) < 6 {
		return pkgutils.NewError(pkgutils.CodeInvalidParam, "password too short")
	}

	hash, err := pkgutils.HashPassword(newPassword)
	if err != nil {
		return pkgutils.WrapError(err, pkgutils.CodeInternalError, "password hash failed")
	}
	user.PasswordHash = hash
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	// force a fresh login
	s.redis.Del(ctx, tokenKey(userID))
	return nil
}

func tokenKey(userID uint64) string {
	return fmt.Sprintf("auth:token:%d", userID)
}

func blacklistKey(token string) string {
	return fmt.Sprintf("auth:blacklist:%s", token)
}
