// Package service contains the use cases: each validates its input and,
// only if valid, delegates to a repository.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/limiter"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/repository"
	"github.com/and161185/grocery-keeper/internal/validate"
)

// AuthService defines account and session use cases.
type AuthService interface {
	// Register validates and creates an account, starting a session.
	Register(ctx context.Context, name, email, password string) (model.User, error)
	// Login validates, applies the local throttle and starts a session.
	Login(ctx context.Context, email, password string) (model.User, error)
	// ForgotPassword validates the email and requests a reset link.
	ForgotPassword(ctx context.Context, email string) (string, error)
	// ResetPassword validates the token and new password.
	ResetPassword(ctx context.Context, token, password string) (string, error)
	// UpdateUser validates the patch and updates the profile.
	UpdateUser(ctx context.Context, patch model.UserPatch) (model.User, error)
	// CurrentUser returns the cached user.
	CurrentUser(ctx context.Context) (model.User, error)
	// LoggedIn reports whether a session exists.
	LoggedIn(ctx context.Context) (bool, error)
	// Logout clears the session.
	Logout(ctx context.Context) error
}

type AuthServiceImpl struct {
	repo repository.AuthRepository
	lim  limiter.Limiter
	log  *zap.Logger
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService. A nil limiter disables throttling.
func NewAuthService(repo repository.AuthRepository, lim limiter.Limiter, log *zap.Logger) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.NewMemory(limiter.Policy{})
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{repo: repo, lim: lim, log: log}
}

// Register validates name, email and password before any network call.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (model.User, error) {
	if err := validate.Register(name, email, password); err != nil {
		return model.User{}, err
	}
	return s.repo.Register(ctx, name, email, password)
}

// Login refuses locally while the account is blocked; only server
// rejections count as failures.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.User, error) {
	if err := validate.Login(email, password); err != nil {
		return model.User{}, err
	}
	account := limiter.Account(email)

	allowed, retry, err := s.lim.Allow(ctx, account, nil)
	if err != nil {
		// throttle storage is advisory
		s.log.Warn("login throttle unavailable", zap.Error(err))
	} else if !allowed {
		return model.User{}, errs.Validation(tooManyAttempts(retry))
	}

	u, err := s.repo.Login(ctx, email, password)
	if err != nil {
		if errs.KindOf(err) == errs.KindServerRejected {
			if blocked, d, ferr := s.lim.Failure(ctx, account, nil); ferr != nil {
				s.log.Warn("record login failure", zap.Error(ferr))
			} else if blocked {
				s.log.Info("login blocked", zap.Duration("for", d))
			}
		}
		return model.User{}, err
	}
	if err := s.lim.Success(ctx, account, nil); err != nil {
		s.log.Warn("reset login throttle", zap.Error(err))
	}
	return u, nil
}

func tooManyAttempts(retry time.Duration) string {
	retry = retry.Round(time.Second)
	if retry <= 0 {
		retry = time.Second
	}
	return fmt.Sprintf("Too many failed login attempts. Try again in %s", retry)
}

// ForgotPassword validates the email shape.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := validate.ForgotPassword(email); err != nil {
		return "", err
	}
	return s.repo.ForgotPassword(ctx, email)
}

// ResetPassword validates the reset token and password length.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if err := validate.ResetPassword(token, password); err != nil {
		return "", err
	}
	return s.repo.ResetPassword(ctx, token, password)
}

// UpdateUser requires at least one field.
func (s *AuthServiceImpl) UpdateUser(ctx context.Context, patch model.UserPatch) (model.User, error) {
	if err := validate.UpdateUser(patch); err != nil {
		return model.User{}, err
	}
	return s.repo.UpdateUser(ctx, patch)
}

// CurrentUser delegates to the repository.
func (s *AuthServiceImpl) CurrentUser(ctx context.Context) (model.User, error) {
	return s.repo.CurrentUser(ctx)
}

// LoggedIn delegates to the repository.
func (s *AuthServiceImpl) LoggedIn(ctx context.Context) (bool, error) {
	return s.repo.LoggedIn(ctx)
}

// Logout delegates to the repository.
func (s *AuthServiceImpl) Logout(ctx context.Context) error {
	return s.repo.Logout(ctx)
}
