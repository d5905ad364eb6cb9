// Package convert maps loosely-typed API payloads to domain types and back.
//
// Decoded responses arrive as any (objects are map[string]any, numbers are
// json.Number). Every failure wraps errs.ErrMalformed.
package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
)

// --- helpers ---

var (
	maxInt = decimal.NewFromInt(math.MaxInt)
	minInt = decimal.NewFromInt(math.MinInt)
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrMalformed}, args...)...)
}

func object(v any, what string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, malformed("%s: expected object, got %T", what, v)
	}
	return m, nil
}

func requiredString(m map[string]any, key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", malformed("missing key %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", malformed("key %q: expected string, got %T", key, raw)
	}
	return s, nil
}

func nonEmptyString(m map[string]any, key string) (string, error) {
	s, err := requiredString(m, key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", malformed("key %q is empty", key)
	}
	return s, nil
}

// optionalString returns nil for an absent or null key.
func optionalString(m map[string]any, key string) (*string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, malformed("key %q: expected string, got %T", key, raw)
	}
	return &s, nil
}

// toDecimal accepts any numeric representation the decoder can produce.
func toDecimal(raw any) (decimal.Decimal, bool) {
	switch n := raw.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// ID normalizes a string or numeric identifier. Numbers use the shortest
// decimal form: 7 and 7.0 become "7", 7.5 stays "7.5".
func ID(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", malformed("missing id")
	case string:
		if v == "" {
			return "", malformed("empty id")
		}
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	d, ok := toDecimal(raw)
	if !ok {
		return "", malformed("id: expected string or number, got %T", raw)
	}
	return d.String(), nil
}

// --- User ---

// UserFromMap maps a user object. id, name and email are required and non-empty.
func UserFromMap(m map[string]any) (model.User, error) {
	id, err := ID(m["id"])
	if err != nil {
		return model.User{}, err
	}
	name, err := nonEmptyString(m, "name")
	if err != nil {
		return model.User{}, err
	}
	email, err := nonEmptyString(m, "email")
	if err != nil {
		return model.User{}, err
	}
	pic, err := optionalString(m, "profile_picture")
	if err != nil {
		return model.User{}, err
	}
	return model.User{ID: id, Name: name, Email: email, ProfilePicture: pic}, nil
}

// UserResponse maps the update-user response. The user is normally wrapped
// in a "user" key; a bare user object is accepted too.
func UserResponse(v any) (model.User, error) {
	m, err := object(v, "response")
	if err != nil {
		return model.User{}, err
	}
	if inner, ok := m["user"]; ok {
		um, err := object(inner, "user")
		if err != nil {
			return model.User{}, err
		}
		return UserFromMap(um)
	}
	return UserFromMap(m)
}

// AuthResponse extracts {token, user} from a register or login response.
func AuthResponse(v any) (model.Session, error) {
	m, err := object(v, "response")
	if err != nil {
		return model.Session{}, err
	}
	token, err := nonEmptyString(m, "token")
	if err != nil {
		return model.Session{}, err
	}
	um, err := object(m["user"], "user")
	if err != nil {
		return model.Session{}, err
	}
	u, err := UserFromMap(um)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{Token: token, User: u}, nil
}

// MessageResponse extracts {message} from forgot/reset password responses.
func MessageResponse(v any) (string, error) {
	m, err := object(v, "response")
	if err != nil {
		return "", err
	}
	return requiredString(m, "message")
}

// --- Product ---

// ProductFromMap maps a product object. price becomes a decimal and quantity
// an integer (fractions truncated); timestamps pass through as strings.
func ProductFromMap(m map[string]any) (model.Product, error) {
	var (
		p   model.Product
		err error
	)
	if p.ID, err = ID(m["id"]); err != nil {
		return model.Product{}, err
	}
	if p.Name, err = requiredString(m, "name"); err != nil {
		return model.Product{}, err
	}
	if p.Description, err = requiredString(m, "description"); err != nil {
		return model.Product{}, err
	}
	if p.Category, err = requiredString(m, "category"); err != nil {
		return model.Product{}, err
	}

	rawPrice, ok := m["price"]
	if !ok || rawPrice == nil {
		return model.Product{}, malformed("missing key %q", "price")
	}
	if p.Price, ok = toDecimal(rawPrice); !ok {
		return model.Product{}, malformed("key %q: expected number, got %T", "price", rawPrice)
	}

	rawQty, ok := m["quantity"]
	if !ok || rawQty == nil {
		return model.Product{}, malformed("missing key %q", "quantity")
	}
	q, ok := toDecimal(rawQty)
	if !ok {
		return model.Product{}, malformed("key %q: expected number, got %T", "quantity", rawQty)
	}
	if q = q.Truncate(0); q.GreaterThan(maxInt) || q.LessThan(minInt) {
		return model.Product{}, malformed("key %q: %s out of range", "quantity", q)
	}
	p.Quantity = int(q.IntPart())

	if p.ImageURL, err = optionalString(m, "image_url"); err != nil {
		return model.Product{}, err
	}
	if p.CreatedAt, err = requiredString(m, "created_at"); err != nil {
		return model.Product{}, err
	}
	if p.UpdatedAt, err = requiredString(m, "updated_at"); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// ProductResponse maps a single product object response.
func ProductResponse(v any) (model.Product, error) {
	m, err := object(v, "product")
	if err != nil {
		return model.Product{}, err
	}
	return ProductFromMap(m)
}

// ProductsResponse maps an array of product objects. A null or empty array
// yields an empty, non-nil slice.
func ProductsResponse(v any) ([]model.Product, error) {
	if v == nil {
		return []model.Product{}, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, malformed("products: expected array, got %T", v)
	}
	out := make([]model.Product, 0, len(arr))
	for i, it := range arr {
		m, err := object(it, fmt.Sprintf("products[%d]", i))
		if err != nil {
			return nil, err
		}
		p, err := ProductFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
