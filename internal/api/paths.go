// Package api names the REST endpoints shared by the client and the dev server.
package api

import "net/url"

// Endpoints
const (
	PathRegister       = "/auth/register"
	PathLogin          = "/auth/login"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
	PathUser           = "/auth/user"
	PathProducts       = "/products"
	PathAddProduct     = "/addproducts"
)

// ProductPath returns /products/{id} with id path-escaped.
func ProductPath(id string) string { return PathProducts + "/" + url.PathEscape(id) }
