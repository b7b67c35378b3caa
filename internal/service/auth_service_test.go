package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	userByID         *models.User
	findByEmailErr   error
	findByIDErr      error
	refreshTokens    map[string]*models.RefreshToken
	createRefreshErr error
	revokeRefreshErr error
	revokedAllFor    string
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error {
	m.revokedAllFor = userID
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "usecase-tracker-api",
		SingleSession:      true,
	})
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "u1", TenantID: "t1", Email: "user@example.com", FullName: "User", PasswordHash: string(password), Active: true, Role: models.RoleTeamLead}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser(t)}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "t1", res.User.TenantID)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, "u1", repo.revokedAllFor)

	require.Len(t, repo.refreshTokens, 1)
	_, storedRaw := repo.refreshTokens[res.RefreshToken]
	assert.False(t, storedRaw, "raw refresh token must not be stored")
	stored, ok := repo.refreshTokens[hashRefreshToken(res.RefreshToken)]
	require.True(t, ok)
	assert.Equal(t, "t1", stored.TenantID)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Equal(t, models.RoleTeamLead, claims.Role)
	assert.Equal(t, "User", claims.FullName)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	inactive := activeUser(t)
	inactive.Active = false

	cases := []struct {
		name string
		repo *mockAuthRepo
		req  models.LoginRequest
		code string
	}{
		{"invalid payload", &mockAuthRepo{}, models.LoginRequest{Email: "nope"}, appErrors.ErrValidation.Code},
		{"unknown email", &mockAuthRepo{findByEmailErr: sql.ErrNoRows}, models.LoginRequest{Email: "a@b.co", Password: "x"}, appErrors.ErrInvalidCredentials.Code},
		{"wrong password", &mockAuthRepo{userByEmail: activeUser(t)}, models.LoginRequest{Email: "user@example.com", Password: "wrong"}, appErrors.ErrInvalidCredentials.Code},
		{"inactive", &mockAuthRepo{userByEmail: inactive}, models.LoginRequest{Email: "user@example.com", Password: "password"}, appErrors.ErrInactiveAccount.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestAuthService(tc.repo).Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser(t)}
	svc := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	assert.NotNil(t, repo.refreshTokens[hashRefreshToken(login.RefreshToken)].RevokedAt)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser(t), refreshTokens: map[string]*models.RefreshToken{
		hashRefreshToken("old"): {ID: "rt1", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)},
	}}

	_, err := newTestAuthService(repo).RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		hashRefreshToken("tok"): {ID: "rt1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newTestAuthService(repo)

	err := svc.Logout(context.Background(), "tok", "someone-else")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "tok", "u1"))
	assert.NotNil(t, repo.refreshTokens[hashRefreshToken("tok")].RevokedAt)

	err = svc.Logout(context.Background(), "missing", "u1")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceMe(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{userByEmail: activeUser(t)})
	info, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", info.Email)

	_, err = newTestAuthService(&mockAuthRepo{findByIDErr: sql.ErrNoRows}).Me(context.Background(), "u1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	user := activeUser(t)
	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour, Issuer: "usecase-tracker-api"})
	token, err := other.generateAccessToken(user)
	require.NoError(t, err)

	_, err = newTestAuthService(&mockAuthRepo{}).ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
