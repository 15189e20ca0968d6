package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"storeadmin/internal/model"
	"storeadmin/internal/utils"
	pkgutils "storeadmin/pkg/utils"
)

type fakeUserRepo struct {
	users     map[uint64]*model.User
	byName    map[string]*model.User
	lastLogin map[uint64]int
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:     make(map[uint64]*model.User),
		byName:    make(map[string]*model.User),
		lastLogin: make(map[uint64]int),
	}
	for _, u := range users {
		r.users[u.ID] = u
		r.byName[u.Username] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.users[user.ID] = user
	r.byName[user.Username] = user
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	r.users[user.ID] = user
	r.byName[user.Username] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, pkgutils.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, ok := r.byName[username]
	if !ok {
		return nil, pkgutils.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID uint64) error {
	r.lastLogin[userID]++
	return nil
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, ok := r.byName[username]
	return ok, nil
}

func setupAuthService(t *testing.T, users ...*model.User) (AuthService, *fakeUserRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newFakeUserRepo(users...)
	jwtManager := utils.NewJWTManager("test-secret", "storeadmin-test", time.Hour, 24*time.Hour)
	return NewAuthService(repo, jwtManager, client), repo
}

func staffUser(t *testing.T, id uint64, username, password string) *model.User {
	t.Helper()

	hash, err := pkgutils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &model.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleOperator,
		Status:       model.UserStatusActive,
	}
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	svc, repo := setupAuthService(t, staffUser(t, 1, "alice", "secret-pass"))
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret-pass"})
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 1, repo.lastLogin[1])

	claims, err := svc.ValidateToken(ctx, resp.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	svc, _ := setupAuthService(t, staffUser(t, 1, "alice", "secret-pass"))

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "wrong"})
	assert.True(t, pkgutils.HasCode(err, pkgutils.CodeUnauthorized))
}

func TestAuthService_LoginUnknownUser(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "ghost", Password: "whatever"})
	assert.True(t, pkgutils.HasCode(err, pkgutils.CodeUnauthorized))
}

func TestAuthService_LoginDisabledAccount(t *testing.T) {
	user := staffUser(t, 1, "alice", "secret-pass")
	user.Status = model.UserStatusDisabled
	svc, _ := setupAuthService(t, user)

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "secret-pass"})
	assert.True(t, pkgutils.HasCode(err, pkgutils.CodeForbidden))
}

func TestAuthService_LogoutBlacklistsToken(t *testing.T) {
	svc, _ := setupAuthService(t, staffUser(t, 1, "alice", "secret-pass"))
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret-pass"})
	assert.NoError(t, err)

	err = svc.Logout(ctx, 1, resp.AccessToken)
	assert.NoError(t, err)

	_, err = svc.ValidateToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, pkgutils.ErrTokenInvalid)
}

func TestAuthService_ValidateGarbageToken(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.ValidateToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, pkgutils.ErrTokenInvalid)
}

func TestAuthService_RefreshToken(t *testing.T) {
	svc, _ := setupAuthService(t, staffUser(t, 1, "alice", "secret-pass"))
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret-pass"})
	assert.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, resp.RefreshToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// the new access token replaces the mirror, so it validates
	claims, err := svc.ValidateToken(ctx, refreshed.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)
}

func TestAuthService_RefreshWithAccessTokenOfDeletedUser(t *testing.T) {
	svc, repo := setupAuthService(t, staffUser(t, 1, "alice", "secret-pass"))
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret-pass"})
	assert.NoError(t, err)

	delete(repo.users, 1)
	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, pkgutils.ErrTokenInvalid)
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, repo := setupAuthService(t, staffUser(t, 1, "alice", "old-pass-123"))
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "old-pass-123"})
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, 1, "wrong", "new-pass-123")
	assert.True(t, pkgutils.HasCode(err, pkgutils.CodeUnauthorized))

	err = svc.ChangePassword(ctx, 1, "old-pass-123", "short")
	assert.True(t, pkgutils.HasCode(err, pkgutils.CodeInvalidParam))

	err = svc.ChangePassword(ctx, 1, "old-pass-123", "new-pass-123")
	assert.NoError(t, err)
	assert.True(t, pkgutils.CheckPassword("new-pass-123", repo.users[1].PasswordHash))

	// password change revokes the mirrored token
	_, err = svc.ValidateToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, pkgutils.ErrTokenInvalid)
}
