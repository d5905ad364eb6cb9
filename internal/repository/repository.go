// Package repository defines the data access contracts used by the use cases.
// Every method returns nil or an *errs.Error.
package repository

import (
	"context"

	"github.com/and161185/grocery-keeper/internal/model"
)

// AuthRepository covers account operations and the local session.
type AuthRepository interface {
	// Register creates an account and starts a session for it.
	Register(ctx context.Context, name, email, password string) (model.User, error)
	// Login starts a session for existing credentials.
	Login(ctx context.Context, email, password string) (model.User, error)
	// ForgotPassword asks the server to send a reset link; returns the server message.
	ForgotPassword(ctx context.Context, email string) (string, error)
	// ResetPassword sets a new password using a reset token; returns the server message.
	ResetPassword(ctx context.Context, token, password string) (string, error)
	// UpdateUser changes profile fields and refreshes the cached user.
	UpdateUser(ctx context.Context, patch model.UserPatch) (model.User, error)
	// CurrentUser returns the cached user without a network call.
	CurrentUser(ctx context.Context) (model.User, error)
	// LoggedIn reports whether both a token and a cached user are present.
	LoggedIn(ctx context.Context) (bool, error)
	// Logout clears the local session.
	Logout(ctx context.Context) error
}

// ProductRepository covers catalog operations. Nothing is cached: every
// read is a network call.
type ProductRepository interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id string) (model.Product, error)
	Add(ctx context.Context, p model.NewProduct) (model.Product, error)
	Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error)
	Delete(ctx context.Context, id string) error
}
