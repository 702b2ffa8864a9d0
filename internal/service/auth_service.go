package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/turklawai/auth-service/internal/auth"
	"github.com/turklawai/auth-service/internal/config"
	"github.com/turklawai/auth-service/internal/domain"
	"github.com/turklawai/auth-service/internal/events"
	"github.com/turklawai/auth-service/internal/observability"
	"github.com/turklawai/auth-service/internal/repository"
	"github.com/turklawai/auth-service/pkg/util"
)

// AuthService coordinates registration, login and session verification.
// Every failure path returns a util.DomainError carrying one of the error
// codes; lower-layer errors never escape unwrapped.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	hasher     auth.PasswordHasher
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
}

// NewAuthService builds the service. The password scheme and token
// parameters come from configuration; collaborators are injected so tests
// can substitute fakes for the store.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	legacy := auth.NewLegacyHasher(cfg.Auth.PasswordSalt)
	var hasher auth.PasswordHasher = legacy
	if cfg.Auth.PasswordScheme == config.PasswordSchemeBcrypt {
		hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost, legacy)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		hasher:     hasher,
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLHours),
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a new account and issues its first session.
//
// The duplicate check and the insert are separate store calls; two
// concurrent registrations for the same email can both pass the check. The
// unique index on users.email is the backstop, surfacing the loser as a
// store error.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*domain.Session, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.metrics.RecordAuthAttempt("register", util.CodeAlreadyExists)
		return nil, util.NewAlreadyExists("user already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.metrics.RecordAuthAttempt("register", util.CodeStoreError)
		return nil, util.NewStoreError(err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	user := &domain.User{
		Email:         email,
		PasswordHash:  digest,
		FullName:      fullName,
		Plan:          domain.PlanFree,
		Status:        domain.UserStatusActive,
		RequestsUsed:  0,
		RequestsLimit: domain.PlanFree.RequestLimit(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.metrics.RecordAuthAttempt("register", util.CodeStoreError)
		return nil, util.NewStoreError(err)
	}

	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	s.metrics.RecordAuthAttempt("register", "ok")
	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email: user.Email,
		Plan:  user.Plan,
	})
	return &domain.Session{User: user.Summary(), Token: token, ExpiresAt: exp}, nil
}

// Login authenticates an account and issues a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.RecordAuthAttempt("login", util.CodeNotFound)
			return nil, util.NewNotFound("user")
		}
		s.metrics.RecordAuthAttempt("login", util.CodeStoreError)
		return nil, util.NewStoreError(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordAuthAttempt("login", util.CodeInvalidCredentials)
		return nil, util.NewInvalidCredentials()
	}

	if user.Status != domain.UserStatusActive {
		s.metrics.RecordAuthAttempt("login", util.CodeAccountInactive)
		return nil, util.NewAccountInactive()
	}

	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	// Last-activity bookkeeping; login succeeds even if it fails.
	if err := s.users.Touch(ctx, user.ID); err != nil {
		s.logger.Warn("touch after login failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.metrics.RecordAuthAttempt("login", "ok")
	s.publish(ctx, events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{Email: user.Email})
	return &domain.Session{User: user.Summary(), Token: token, ExpiresAt: exp}, nil
}

// VerifySession validates a bearer token and returns a fresh user summary.
// Plan and status always come from the store, never from the claim, so
// out-of-band changes take effect without re-login.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*domain.UserSummary, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, util.NewTokenExpired()
		}
		return nil, util.NewTokenInvalid("invalid token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user")
		}
		return nil, util.NewStoreError(err)
	}

	summary := user.Summary()
	return &summary, nil
}

// Logout is a no-op for the stateless token approach; clients discard the
// token.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// RequestPasswordReset persists a reset token for the account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user")
		}
		return nil, util.NewStoreError(err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, util.NewStoreError(err)
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Email:     user.Email,
		ExpiresAt: token.ExpiresAt,
	})
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewTokenInvalid("unknown reset token")
		}
		return util.NewStoreError(err)
	}
	if token.UsedAt != nil {
		return util.NewTokenInvalid("reset token already used")
	}
	if time.Now().After(token.ExpiresAt) {
		return util.NewTokenExpired()
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return util.NewInternalError(err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("user")
		}
		return util.NewStoreError(err)
	}
	user.PasswordHash = digest
	if err := s.users.Update(ctx, user); err != nil {
		return util.NewStoreError(err)
	}

	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		return util.NewStoreError(err)
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email})
	return nil
}

// ChangePassword verifies the current password before updating to the new
// digest.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("user")
		}
		return util.NewStoreError(err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return util.NewInvalidCredentials()
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return util.NewInternalError(err)
	}
	user.PasswordHash = digest
	if err := s.users.Update(ctx, user); err != nil {
		return util.NewStoreError(err)
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email})
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
