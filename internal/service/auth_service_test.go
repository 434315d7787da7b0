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

	"github.com/noah-isme/enroll-portal-api/internal/models"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
)

type fakeUserRepo struct {
	users     map[string]*models.User
	lastLogin map[string]time.Time
	passwords map[string]string
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func (f *fakeUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == identifier || u.LRN == identifier {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if f.lastLogin == nil {
		f.lastLogin = make(map[string]time.Time)
	}
	f.lastLogin[id] = ts
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if f.passwords == nil {
		f.passwords = make(map[string]string)
	}
	f.passwords[id] = passwordHash
	return nil
}

type fakeResetCodes struct {
	codes    map[string]string
	consumed []string
}

func (f *fakeResetCodes) Issue(ctx context.Context, email string) (string, error) {
	if f.codes == nil {
		f.codes = make(map[string]string)
	}
	f.codes[email] = "123456"
	return "123456", nil
}

func (f *fakeResetCodes) Verify(ctx context.Context, email, code string) (bool, error) {
	return f.codes[email] == code, nil
}

func (f *fakeResetCodes) Consume(ctx context.Context, email string) error {
	delete(f.codes, email)
	f.consumed = append(f.consumed, email)
	return nil
}

type recordingMailer struct {
	sent map[string]string
}

func (m *recordingMailer) SendResetCode(ctx context.Context, email, code string) error {
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[email] = code
	return nil
}

func newTestAuthService(users *fakeUserRepo, codes *fakeResetCodes, mailer *recordingMailer) *AuthService {
	return NewAuthService(users, codes, mailer, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "enroll-portal-api",
	})
}

func studentUser(t *testing.T) *models.User {
	return &models.User{
		ID:           "u1",
		Email:        "juan@example.com",
		LRN:          "123456789012",
		PasswordHash: hashOf(t, "secret-pass"),
		FullName:     "Juan Dela Cruz",
		Role:         models.RoleStudent,
		Active:       true,
	}
}

func TestLoginByEmail(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "juan@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.Contains(t, users.lastLogin, "u1")
}

func TestLoginByLRN(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "123456789012", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "juan@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginUnknownIdentifier(t *testing.T) {
	svc := newTestAuthService(&fakeUserRepo{}, &fakeResetCodes{}, &recordingMailer{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "nobody@example.com", Password: "secret"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := studentUser(t)
	user.Active = false
	users := &fakeUserRepo{users: map[string]*models.User{"u1": user}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "juan@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestParseTokenRoundTrip(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "juan@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	claims, err := svc.ParseToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestParseTokenInvalid(t *testing.T) {
	svc := newTestAuthService(&fakeUserRepo{}, &fakeResetCodes{}, &recordingMailer{})

	_, err := svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestChangePassword(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "secret-pass", NewPassword: "new-password"})
	require.NoError(t, err)
	assert.Contains(t, users.passwords, "u1")
}

func TestRequestResetCodeUnknownEmailSilent(t *testing.T) {
	mailer := &recordingMailer{}
	svc := newTestAuthService(&fakeUserRepo{}, &fakeResetCodes{}, mailer)

	err := svc.RequestResetCode(context.Background(), models.RequestCodeRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestResetPasswordFlow(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	codes := &fakeResetCodes{}
	mailer := &recordingMailer{}
	svc := newTestAuthService(users, codes, mailer)

	require.NoError(t, svc.RequestResetCode(context.Background(), models.RequestCodeRequest{Email: "juan@example.com"}))
	code := mailer.sent["juan@example.com"]
	require.NotEmpty(t, code)

	require.NoError(t, svc.VerifyResetCode(context.Background(), models.VerifyCodeRequest{Email: "juan@example.com", Code: code}))

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Email: "juan@example.com", Code: code, NewPassword: "brand-new-pass"})
	require.NoError(t, err)
	assert.Contains(t, users.passwords, "u1")
	assert.Contains(t, codes.consumed, "juan@example.com")
}

func TestResetPasswordBadCode(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{"u1": studentUser(t)}}
	svc := newTestAuthService(users, &fakeResetCodes{}, &recordingMailer{})

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Email: "juan@example.com", Code: "000000", NewPassword: "brand-new-pass"})
	assert.ErrorIs(t, err, appErrors.ErrCodeExpired)
}
