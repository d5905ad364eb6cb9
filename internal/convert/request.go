package convert

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/and161185/grocery-keeper/internal/model"
)

// number renders a decimal as a JSON number literal rather than a quoted string.
func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

// RegisterBody builds the POST /auth/register payload.
func RegisterBody(name, email, password string) map[string]any {
	return map[string]any{"name": name, "email": email, "password": password}
}

// LoginBody builds the POST /auth/login payload.
func LoginBody(email, password string) map[string]any {
	return map[string]any{"email": email, "password": password}
}

// ForgotPasswordBody builds the POST /auth/forgot-password payload.
func ForgotPasswordBody(email string) map[string]any {
	return map[string]any{"email": email}
}

// ResetPasswordBody builds the POST /auth/reset-password payload.
func ResetPasswordBody(token, password string) map[string]any {
	return map[string]any{"token": token, "password": password}
}

// UserPatchBody includes only the fields that are set.
func UserPatchBody(p model.UserPatch) map[string]any {
	out := make(map[string]any, 3)
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.ProfilePicture != nil {
		out["profile_picture"] = *p.ProfilePicture
	}
	return out
}

// NewProductBody builds the POST /addproducts payload; image_url is omitted when nil.
func NewProductBody(p model.NewProduct) map[string]any {
	out := map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"price":       number(p.Price),
		"category":    p.Category,
		"quantity":    p.Quantity,
	}
	if p.ImageURL != nil {
		out["image_url"] = *p.ImageURL
	}
	return out
}

// ProductPatchBody includes only the fields that are set.
func ProductPatchBody(p model.ProductPatch) map[string]any {
	out := make(map[string]any, 6)
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Price != nil {
		out["price"] = number(*p.Price)
	}
	if p.ImageURL != nil {
		out["image_url"] = *p.ImageURL
	}
	if p.Category != nil {
		out["category"] = *p.Category
	}
	if p.Quantity != nil {
		out["quantity"] = *p.Quantity
	}
	return out
}
