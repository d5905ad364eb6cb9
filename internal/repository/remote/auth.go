package remote

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/api"
	"github.com/and161185/grocery-keeper/internal/convert"
	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/repository"
)

var _ repository.AuthRepository = (*Auth)(nil)

// Auth implements repository.AuthRepository. It is the only writer of the session.
type Auth struct {
	api  Caller
	sess SessionStore
	log  *zap.Logger
}

// NewAuth constructs the auth repository.
func NewAuth(c Caller, sess SessionStore, log *zap.Logger) *Auth {
	return &Auth{api: c, sess: sess, log: orNop(log)}
}

// Register creates the account, then persists token and user.
func (a *Auth) Register(ctx context.Context, name, email, password string) (model.User, error) {
	return a.authenticate(ctx, "register", api.PathRegister, convert.RegisterBody(name, email, password))
}

// Login persists token and user on success.
func (a *Auth) Login(ctx context.Context, email, password string) (model.User, error) {
	return a.authenticate(ctx, "login", api.PathLogin, convert.LoginBody(email, password))
}

func (a *Auth) authenticate(ctx context.Context, op, path string, body map[string]any) (model.User, error) {
	v, err := a.api.Call(ctx, http.MethodPost, path, body)
	if err != nil {
		return model.User{}, fail(a.log, op, err)
	}
	s, err := convert.AuthResponse(v)
	if err != nil {
		return model.User{}, fail(a.log, op, err)
	}
	if err := a.sess.SaveToken(ctx, s.Token); err != nil {
		return model.User{}, storageFail(a.log, op, err)
	}
	if err := a.sess.SetCurrentUser(ctx, s.User); err != nil {
		return model.User{}, storageFail(a.log, op, err)
	}
	a.log.Info("session started", zap.String("op", op), zap.String("user_id", s.User.ID))
	return s.User, nil
}

// ForgotPassword returns the server confirmation message.
func (a *Auth) ForgotPassword(ctx context.Context, email string) (string, error) {
	return a.message(ctx, "forgot_password", api.PathForgotPassword, convert.ForgotPasswordBody(email))
}

// ResetPassword returns the server confirmation message.
func (a *Auth) ResetPassword(ctx context.Context, token, password string) (string, error) {
	return a.message(ctx, "reset_password", api.PathResetPassword, convert.ResetPasswordBody(token, password))
}

func (a *Auth) message(ctx context.Context, op, path string, body map[string]any) (string, error) {
	v, err := a.api.Call(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", fail(a.log, op, err)
	}
	msg, err := convert.MessageResponse(v)
	if err != nil {
		return "", fail(a.log, op, err)
	}
	return msg, nil
}

// UpdateUser sends only the set fields and refreshes the cached user.
func (a *Auth) UpdateUser(ctx context.Context, patch model.UserPatch) (model.User, error) {
	const op = "update_user"
	v, err := a.api.Call(ctx, http.MethodPut, api.PathUser, convert.UserPatchBody(patch))
	if err != nil {
		return model.User{}, fail(a.log, op, err)
	}
	u, err := convert.UserResponse(v)
	if err != nil {
		return model.User{}, fail(a.log, op, err)
	}
	if err := a.sess.SetCurrentUser(ctx, u); err != nil {
		return model.User{}, storageFail(a.log, op, err)
	}
	return u, nil
}

// CurrentUser reads the session; a missing user yields errs.NotLoggedIn.
func (a *Auth) CurrentUser(ctx context.Context) (model.User, error) {
	u, err := a.sess.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.NotLoggedIn()
		}
		return model.User{}, storageFail(a.log, "current_user", err)
	}
	return u, nil
}

// LoggedIn reports whether token and cached user are both present.
func (a *Auth) LoggedIn(ctx context.Context) (bool, error) {
	ok, err := a.sess.LoggedIn(ctx)
	if err != nil {
		return false, storageFail(a.log, "logged_in", err)
	}
	return ok, nil
}

// Logout clears token and cached user. The server is not contacted.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.sess.ClearSession(ctx); err != nil {
		return storageFail(a.log, "logout", err)
	}
	a.log.Info("session cleared")
	return nil
}
