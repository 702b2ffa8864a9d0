package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turklawai/auth-service/internal/auth"
	"github.com/turklawai/auth-service/internal/config"
	"github.com/turklawai/auth-service/internal/domain"
	"github.com/turklawai/auth-service/internal/events"
	"github.com/turklawai/auth-service/internal/repository"
	"github.com/turklawai/auth-service/pkg/util"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	seq       int
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return errors.New("unique constraint violation: users_email_unique")
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) UpdateUsage(_ context.Context, id string, requestsUsed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.RequestsUsed = requestsUsed
	user.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	return nil
}

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
	seq    int
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	token.ID = fmt.Sprintf("reset-%d", r.seq)
	token.CreatedAt = time.Now()
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return token, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			TokenTTLHours:           24,
			PasswordSalt:            "test-salt",
			PasswordScheme:          config.PasswordSchemeLegacy,
			BcryptCost:              4,
			PasswordResetTTLMinutes: 30,
		},
	}
}

func newTestService(users *fakeUserRepo, resets *fakeResetRepo) *AuthService {
	return NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
	})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *util.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestRegister(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users, newFakeResetRepo())

	session, err := svc.Register(context.Background(), "a@b.com", "pw123456", "Test User")
	require.NoError(t, err)

	assert.NotEmpty(t, session.User.ID)
	assert.Equal(t, "a@b.com", session.User.Email)
	assert.Equal(t, domain.PlanFree, session.User.Plan)
	assert.Equal(t, domain.UserStatusActive, session.User.Status)
	assert.Equal(t, 0, session.User.RequestsUsed)
	assert.Equal(t, 100, session.User.RequestsLimit)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	// The registration token is immediately valid for session verification.
	summary, err := svc.VerifySession(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, summary.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), newFakeResetRepo())

	_, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "a@b.com", "other-pw", "")
	assertCode(t, err, util.CodeAlreadyExists)
}

func TestRegisterStoreFailure(t *testing.T) {
	users := newFakeUserRepo()
	users.createErr = errors.New("connection refused")
	svc := newTestService(users, newFakeResetRepo())

	_, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	assertCode(t, err, util.CodeStoreError)
}

func TestRegisterPublishesEvent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventUserRegistered, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})

	svc := NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          newFakeUserRepo(),
		PasswordResetRepo: newFakeResetRepo(),
		Dispatcher:        dispatcher,
	})

	session, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, session.User.ID, published[0].UserID)
	assert.NotEmpty(t, published[0].ID)
}

func TestLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users, newFakeResetRepo())

	_, err := svc.Register(context.Background(), "a@b.com", "pw123456", "Test User")
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "a@b.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", session.User.Email)
	assert.NotEmpty(t, session.Token)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), newFakeResetRepo())

	_, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "a@b.com", "wrong-password")
	assertCode(t, err, util.CodeInvalidCredentials)
	assert.Nil(t, session)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), newFakeResetRepo())

	_, err := svc.Login(context.Background(), "nobody@b.com", "pw123456")
	assertCode(t, err, util.CodeNotFound)
}

func TestLoginInactiveAccount(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users, newFakeResetRepo())

	session, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	require.NoError(t, err)

	users.users[session.User.ID].Status = domain.UserStatusInactive

	_, err = svc.Login(context.Background(), "a@b.com", "pw123456")
	assertCode(t, err, util.CodeAccountInactive)
}

func TestVerifySessionRefreshesPlanAndStatus(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users, newFakeResetRepo())

	session, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	require.NoError(t, err)

	// Out-of-band plan upgrade; the issued token still says "free".
	users.users[session.User.ID].Plan = domain.PlanEnterprise
	users.users[session.User.ID].Status = domain.UserStatusInactive

	summary, err := svc.VerifySession(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanEnterprise, summary.Plan)
	assert.Equal(t, domain.UserStatusInactive, summary.Status)
}

func TestVerifySessionDeletedUser(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users, newFakeResetRepo())

	session, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	require.NoError(t, err)

	delete(users.users, session.User.ID)

	_, err = svc.VerifySession(context.Background(), session.Token)
	assertCode(t, err, util.CodeNotFound)
}

func TestVerifySessionForeignSignature(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), newFakeResetRepo())

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := foreign.SignedString([]byte("someone-elses-secret"))
	require.NoError(t, err)

	_, err = svc.VerifySession(context.Background(), token)
	assertCode(t, err, util.CodeTokenInvalid)
}

func TestVerifySessionExpiredToken(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), newFakeResetRepo())

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-25 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	token, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.VerifySession(context.Background(), token)
	assertCode(t, err, util.CodeTokenExpired)
}

func TestPasswordResetFlow(t *testing.T) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	svc := newTestService(users, resets)

	_, err := svc.Register(context.Background(), "a@b.com", "old-password", "")
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token.Token, "new-password"))

	_, err = svc.Login(context.Background(), "a@b.com", "old-password")
	assertCode(t, err, util.CodeInvalidCredentials)
	_, err = svc.Login(context.Background(), "a@b.com", "new-password")
	require.NoError(t, err)

	// A reset token is single-use.
	err = svc.ConfirmPasswordReset(context.Background(), token.Token, "another-password")
	assertCode(t, err, util.CodeTokenInvalid)
}

func TestPasswordResetExpiredToken(t *testing.T) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	svc := newTestService(users, resets)

	_, err := svc.Register(context.Background(), "a@b.com", "pw123456", "")
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(context.Background(), "a@b.com")
	require.NoError(t, err)

	resets.tokens[token.Token].ExpiresAt = time.Now().Add(-time.Minute)

	err = svc.ConfirmPasswordReset(context.Background(), token.Token, "new-password")
	assertCode(t, err, util.CodeTokenExpired)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), newFakeResetRepo())

	_, err := svc.RequestPasswordReset(context.Background(), "nobody@b.com")
	assertCode(t, err, util.CodeNotFound)
}

func TestChangePassword(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users, newFakeResetRepo())

	session, err := svc.Register(context.Background(), "a@b.com", "old-password", "")
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), session.User.ID, "wrong", "new-password")
	assertCode(t, err, util.CodeInvalidCredentials)

	require.NoError(t, svc.ChangePassword(context.Background(), session.User.ID, "old-password", "new-password"))

	_, err = svc.Login(context.Background(), "a@b.com", "new-password")
	require.NoError(t, err)
}

func TestBcryptSchemeKeepsLegacyAccounts(t *testing.T) {
	users := newFakeUserRepo()

	legacySvc := newTestService(users, newFakeResetRepo())
	_, err := legacySvc.Register(context.Background(), "old@b.com", "pw123456", "")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Auth.PasswordScheme = config.PasswordSchemeBcrypt
	bcryptSvc := NewAuthService(cfg, AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: newFakeResetRepo(),
	})

	// Accounts registered under the legacy scheme still log in.
	_, err = bcryptSvc.Login(context.Background(), "old@b.com", "pw123456")
	require.NoError(t, err)

	session, err := bcryptSvc.Register(context.Background(), "new@b.com", "pw123456", "")
	require.NoError(t, err)
	assert.True(t, len(users.users[session.User.ID].PasswordHash) > 0)
	assert.Equal(t, "$2", users.users[session.User.ID].PasswordHash[:2])
}
