package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/navicf-api/internal/models"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
)

type mockAdminRepo struct {
	user             *models.AdminUser
	lastLoginUpdated bool
}

func (m *mockAdminRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	u := *m.user
	return &u, nil
}

func (m *mockAdminRepo) FindByAuthID(ctx context.Context, authID string) (*models.AdminUser, error) {
	if m.user == nil || m.user.AuthID != authID {
		return nil, sql.ErrNoRows
	}
	u := *m.user
	return &u, nil
}

func (m *mockAdminRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, *mockAdminRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAdminRepo{user: &models.AdminUser{
		ID:           "adm-1",
		AuthID:       "7f1e9b8c-7b73-4a4e-9b55-1d1f6b1f7a10",
		Name:         "Rosa",
		Lastname:     "Huamán",
		Email:        "admin@navicf.pe",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       active,
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour, Issuer: "navicf-api"})
	return svc, repo
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, repo := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: " admin@navicf.pe ", Password: "s3cret!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "adm-1", claims.UserID)
	assert.Equal(t, repo.user.AuthID, claims.AuthID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@navicf.pe", Password: "nope"})
	assertCode(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "other@navicf.pe", Password: "s3cret!"})
	assertCode(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@navicf.pe", Password: "s3cret!"})
	assertCode(t, err, appErrors.ErrInactiveAccount.Code)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin", Password: "x"})
	assertCode(t, err, appErrors.ErrValidation.Code)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@navicf.pe", Password: "s3cret!"})
	require.NoError(t, err)

	other := NewAuthService(&mockAdminRepo{}, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "different", Issuer: "navicf-api"})
	_, err = other.ValidateToken(resp.AccessToken)
	assertCode(t, err, appErrors.ErrUnauthorized.Code)
}

func TestAuthServiceSessionCrossCheck(t *testing.T) {
	svc, repo := newAuthFixture(t, true)
	claims := &models.JWTClaims{UserID: "adm-1", AuthID: repo.user.AuthID}

	user, err := svc.Session(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "Rosa", user.Name)

	repo.user.Active = false
	_, err = svc.Session(context.Background(), claims)
	assertCode(t, err, appErrors.ErrInactiveAccount.Code)

	_, err = svc.Session(context.Background(), &models.JWTClaims{UserID: "adm-1", AuthID: "unknown"})
	assertCode(t, err, appErrors.ErrUnauthorized.Code)
}

func TestAuthServiceMe(t *testing.T) {
	svc, repo := newAuthFixture(t, true)

	info, err := svc.Me(context.Background(), &models.JWTClaims{UserID: "adm-1", AuthID: repo.user.AuthID})
	require.NoError(t, err)
	assert.Equal(t, "admin@navicf.pe", info.Email)
}
