// Package remote implements the repositories over the REST API. Each
// operation issues exactly one call, maps the response and returns either
// a value or an *errs.Error; nothing is retried.
package remote

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
)

// Caller performs one API call. Implemented by *transport.Client.
type Caller interface {
	Call(ctx context.Context, method, path string, body any) (any, error)
}

// SessionStore is the part of *session.Store the auth repository writes to.
type SessionStore interface {
	SaveToken(ctx context.Context, token string) error
	SetCurrentUser(ctx context.Context, u model.User) error
	CurrentUser(ctx context.Context) (model.User, error)
	LoggedIn(ctx context.Context) (bool, error)
	ClearSession(ctx context.Context) error
}

// fail classifies err and logs it under op.
func fail(log *zap.Logger, op string, err error) error {
	ce := errs.Classify(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("kind", ce.Kind.String()),
		zap.Error(err),
	}
	switch ce.Kind {
	case errs.KindServerRejected:
		log.Warn("request rejected", append(fields, zap.Int("status", ce.Status))...)
	case errs.KindUnreachable:
		log.Error("server unreachable", fields...)
	default:
		log.Error("request failed", fields...)
	}
	return ce
}

// storageFail classifies a local storage failure as Unexpected regardless of its cause.
func storageFail(log *zap.Logger, op string, err error) error {
	return fail(log, op, errs.Unexpected(err))
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
