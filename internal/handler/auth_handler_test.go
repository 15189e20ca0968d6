package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storeadmin/internal/service/auth"
	"storeadmin/internal/utils"
	pkgutils "storeadmin/pkg/utils"
)

// MockAuthService is a mock implementation of auth.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, userID uint64, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*utils.JWTClaims), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenResponse), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	args := m.Called(ctx, userID, oldPassword, newPassword)
	return args.Error(0)
}

func TestAuthHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful login", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService)

		tokenResp := &auth.TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
		}
		mockService.On("Login", mock.Anything, mock.MatchedBy(func(req *auth.LoginRequest) bool {
			return req.Username == "alice" && req.Password == "secret"
		})).Return(tokenResp, nil)

		router := gin.New()
		router.POST("/auth/login", handler.Login)

		body, _ := json.Marshal(gin.H{"username": "alice", "password": "secret"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, pkgutils.CodeSuccess, resp.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("wrong credentials map to 401", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService)

		mockService.On("Login", mock.Anything, mock.Anything).
			Return(nil, pkgutils.NewError(pkgutils.CodeUnauthorized, "username or password incorrect"))

		router := gin.New()
		router.POST("/auth/login", handler.Login)

		body, _ := json.Marshal(gin.H{"username": "alice", "password": "wrong"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields rejected before the service", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService)

		router := gin.New()
		router.POST("/auth/login", handler.Login)

		body, _ := json.Marshal(gin.H{"username": "alice"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Login")
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockAuthService)
	handler := NewAuthHandler(mockService)

	tokenResp := &auth.TokenResponse{AccessToken: "fresh", TokenType: "Bearer"}
	mockService.On("RefreshToken", mock.Anything, "refresh-token").Return(tokenResp, nil)

	router := gin.New()
	router.POST("/auth/refresh", handler.RefreshToken)

	body, _ := json.Marshal(gin.H{"refresh_token": "refresh-token"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/auth/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}
