// Package model defines domain entities used by services and repositories.
package model

import (
	"github.com/shopspring/decimal"
)

// User is the account of the person using the app.
type User struct {
	ID             string  `json:"id"`    // server-assigned, stable identity
	Name           string  `json:"name"`  // never empty once mapped from a response
	Email          string  `json:"email"` // never empty once mapped from a response
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// Session is the token and cached user pair representing who is logged in.
type Session struct {
	Token string
	User  User
}

// Product is a single catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	CreatedAt   string          `json:"created_at"` // opaque, passed through unparsed
	UpdatedAt   string          `json:"updated_at"` // opaque, passed through unparsed
}

// UserPatch carries the profile fields to change; nil means "leave as is".
type UserPatch struct {
	Name           *string
	Email          *string
	ProfilePicture *string
}

// Empty reports whether no field is set.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.ProfilePicture == nil
}

// NewProduct is a create intent for the catalog.
type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    *string
	Category    string
	Quantity    int
}

// ProductPatch carries the product fields to change; nil means "leave as is".
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
	Category    *string
	Quantity    *int
}

// Empty reports whether no field is set.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.ImageURL == nil && p.Category == nil && p.Quantity == nil
}

// Catalog is the home screen summary built from the full product list.
type Catalog struct {
	Featured   []Product            `json:"featured"`
	Categories []string             `json:"categories"`
	ByCategory map[string][]Product `json:"by_category"`
}
