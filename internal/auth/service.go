package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"parlour/internal/apperr"
	"parlour/internal/metrics"
	"parlour/internal/model"
	"parlour/internal/store"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgTokenMissing       = "Not authorized, token missing"
	msgTokenInvalid       = "Not authorized, invalid token"
	msgDuplicateUser      = "User with this email already exists"
)

// Session is the result of a successful login or registration.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      model.Identity
}

// Service implements login, registration and token authentication.
type Service struct {
	users  store.Users
	hasher *Hasher
	issuer *Issuer
	policy LockoutPolicy
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for lockout decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLockout overrides DefaultLockout.
func WithLockout(p LockoutPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// NewService wires the auth flows over a credential store.
func NewService(users store.Users, hasher *Hasher, issuer *Issuer, opts ...Option) *Service {
	s := &Service{users: users, hasher: hasher, issuer: issuer, policy: DefaultLockout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks credentials under the lockout policy and issues a session.
// Unknown emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if errs := ValidateLogin(in); len(errs) > 0 {
		return Session{}, apperr.Validation(strings.Join(errs, ", "))
	}

	u, err := s.users.UserByEmail(ctx, NormalizeEmail(in.Email))
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.CompareDummy(in.Password)
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return Session{}, apperr.Internal(err)
	}

	now := s.now()
	if remaining, locked := s.policy.Locked(u, now); locked {
		metrics.LoginAttempts.WithLabelValues("locked").Inc()
		msg := fmt.Sprintf("Account is locked. Please try again in %d minutes", RemainingMinutes(remaining))
		return Session{}, apperr.Locked(msg, remaining)
	}

	ok, err := s.hasher.Compare(u.PasswordHash, in.Password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return Session{}, apperr.Internal(err)
	}
	if !ok {
		return Session{}, s.recordFailure(ctx, u, now)
	}

	if s.policy.NeedsReset(u) {
		if err := s.users.ResetLoginState(ctx, u.ID); err != nil {
			return Session{}, apperr.Internal(err)
		}
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return s.session(u)
}

func (s *Service) recordFailure(ctx context.Context, u *model.Identity, now time.Time) error {
	failures, err := s.users.IncrementFailedLogins(ctx, u.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !s.policy.ShouldLock(failures) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return apperr.Unauthorized(msgInvalidCredentials)
	}
	if err := s.users.LockUser(ctx, u.ID, s.policy.LockUntil(now)); err != nil {
		return apperr.Internal(err)
	}
	metrics.Lockouts.Inc()
	metrics.LoginAttempts.WithLabelValues("locked").Inc()
	slog.Warn("account locked", "user_id", u.ID, "failures", failures)
	msg := fmt.Sprintf("Account locked due to too many failed attempts. Please try again in %d minutes",
		RemainingMinutes(s.policy.LockDuration))
	return apperr.Locked(msg, s.policy.LockDuration)
}

// Register creates an identity and issues its first session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if errs := ValidateRegister(in); len(errs) > 0 {
		return Session{}, apperr.Validation(strings.Join(errs, ", "))
	}
	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return Session{}, apperr.Validation("Password cannot exceed 72 bytes")
	}
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	role, _ := model.ParseRole(in.Role)
	u := &model.Identity{
		Name:         strings.TrimSpace(in.Name),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Session{}, apperr.Validation(msgDuplicateUser)
		}
		return Session{}, apperr.Internal(err)
	}
	slog.Info("identity registered", "user_id", u.ID, "role", u.Role)
	return s.session(u)
}

// Authenticate resolves a bearer token to its identity, without credential state.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, apperr.Unauthorized(msgTokenMissing)
	}
	id, err := s.issuer.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized(msgTokenInvalid)
	}
	u, err := s.users.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized(msgTokenInvalid)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	pub := u.Public()
	return &pub, nil
}

func (s *Service) session(u *model.Identity) (Session, error) {
	token, exp, err := s.issuer.Issue(u.ID)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	return Session{Token: token, ExpiresAt: exp, User: u.Public()}, nil
}
