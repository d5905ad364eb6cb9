// Package validate holds the field rules every use case checks before a
// request is allowed to reach the network.
//
// Rules are evaluated in a fixed order and stop at the first failure; the
// result is nil or a single *errs.Error of kind Validation.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
)

// MinPasswordLen applies on register and reset, not on login.
const MinPasswordLen = 6

// emailPattern is a coarse syntactic check, not RFC 5322: ASCII word/dot/dash
// local part, lowercase domain labels separated by dots. Addresses with digits
// or dashes in the domain are rejected; that is accepted.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-z]+(\.[a-z]+)+$`)

// NothingToUpdate is returned by update rules when every optional field is absent.
const NothingToUpdate = "At least one field must be provided for update"

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("email_shape", func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	// blank is allowed and means "not checked"
	_ = v.RegisterValidation("email_shape_or_blank", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.TrimSpace(s) == "" || IsEmail(s)
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// IsEmail reports whether s passes the coarse email shape check.
func IsEmail(s string) bool { return emailPattern.MatchString(s) }

type registerInput struct {
	Name     string `validate:"notblank"`
	Email    string `validate:"notblank,email_shape"`
	Password string `validate:"notblank,min=6"`
}

var registerMessages = map[string]string{
	"Name.notblank":     "Name cannot be empty",
	"Email.notblank":    "Email cannot be empty",
	"Email.email_shape": "Invalid email format",
	"Password.notblank": "Password cannot be empty",
	"Password.min":      "Password must be at least 6 characters",
}

// Register checks name, email shape and password length.
func Register(name, email, password string) error {
	return check(engine.Struct(registerInput{Name: name, Email: email, Password: password}), registerMessages)
}

type loginInput struct {
	Email    string `validate:"notblank"`
	Password string `validate:"notblank"`
}

var loginMessages = map[string]string{
	"Email.notblank":    "Email cannot be empty",
	"Password.notblank": "Password cannot be empty",
}

// Login checks only presence; the server decides on the credentials.
func Login(email, password string) error {
	return check(engine.Struct(loginInput{Email: email, Password: password}), loginMessages)
}

type forgotInput struct {
	Email string `validate:"notblank,email_shape"`
}

var forgotMessages = map[string]string{
	"Email.notblank":    "Email cannot be empty",
	"Email.email_shape": "Invalid email format",
}

// ForgotPassword checks the email the reset link goes to.
func ForgotPassword(email string) error {
	return check(engine.Struct(forgotInput{Email: email}), forgotMessages)
}

type resetInput struct {
	Token    string `validate:"notblank"`
	Password string `validate:"notblank,min=6"`
}

var resetMessages = map[string]string{
	"Token.notblank":    "Reset token cannot be empty",
	"Password.notblank": "Password cannot be empty",
	"Password.min":      "Password must be at least 6 characters",
}

// ResetPassword checks the reset token and the new password.
func ResetPassword(token, password string) error {
	return check(engine.Struct(resetInput{Token: token, Password: password}), resetMessages)
}

type updateUserInput struct {
	Email string `validate:"email_shape_or_blank"`
	Name  string `validate:"notblank"`
}

var updateUserMessages = map[string]string{
	"Email.email_shape_or_blank": "Invalid email format",
	"Name.notblank":              "Name cannot be empty if provided",
}

// UpdateUser requires at least one field and validates only the present ones.
func UpdateUser(p model.UserPatch) error {
	if p.Empty() {
		return errs.Validation(NothingToUpdate)
	}
	in := updateUserInput{}
	var fields []string
	if p.Email != nil {
		in.Email = *p.Email
		fields = append(fields, "Email")
	}
	if p.Name != nil {
		in.Name = *p.Name
		fields = append(fields, "Name")
	}
	if len(fields) == 0 {
		return nil
	}
	return check(engine.StructPartial(in, fields...), updateUserMessages)
}

type productInput struct {
	Name        string          `validate:"notblank"`
	Description string          `validate:"notblank"`
	Price       decimal.Decimal `validate:"gt=0"`
	Category    string          `validate:"notblank"`
	Quantity    int             `validate:"gte=0"`
}

var addProductMessages = map[string]string{
	"Name.notblank":        "Product name cannot be empty",
	"Description.notblank": "Product description cannot be empty",
	"Price.gt":             "Product price must be greater than zero",
	"Category.notblank":    "Product category cannot be empty",
	"Quantity.gte":         "Product quantity cannot be negative",
}

var updateProductMessages = map[string]string{
	"Name.notblank":        "Product name cannot be empty if provided",
	"Description.notblank": "Product description cannot be empty if provided",
	"Price.gt":             "Product price must be greater than zero if provided",
	"Category.notblank":    "Product category cannot be empty if provided",
	"Quantity.gte":         "Product quantity cannot be negative if provided",
}

// AddProduct checks every required product field.
func AddProduct(p model.NewProduct) error {
	in := productInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Quantity:    p.Quantity,
	}
	return check(engine.Struct(in), addProductMessages)
}

// UpdateProduct checks the id, requires at least one field and applies the
// create rules to the present fields only.
func UpdateProduct(id string, p model.ProductPatch) error {
	if err := ProductID(id); err != nil {
		return err
	}
	if p.Empty() {
		return errs.Validation(NothingToUpdate)
	}
	in := productInput{}
	var fields []string
	if p.Name != nil {
		in.Name = *p.Name
		fields = append(fields, "Name")
	}
	if p.Description != nil {
		in.Description = *p.Description
		fields = append(fields, "Description")
	}
	if p.Price != nil {
		in.Price = *p.Price
		fields = append(fields, "Price")
	}
	if p.Category != nil {
		in.Category = *p.Category
		fields = append(fields, "Category")
	}
	if p.Quantity != nil {
		in.Quantity = *p.Quantity
		fields = append(fields, "Quantity")
	}
	if len(fields) == 0 {
		// only image_url is set: nothing to check
		return nil
	}
	return check(engine.StructPartial(in, fields...), updateProductMessages)
}

// AddProductBeforePrice checks only the fields ordered ahead of the price,
// for callers holding a price that is not a number.
func AddProductBeforePrice(p model.NewProduct) error {
	in := productInput{Name: p.Name, Description: p.Description}
	return check(engine.StructPartial(in, "Name", "Description"), addProductMessages)
}

// UpdateProductBeforePrice is AddProductBeforePrice for a patch.
func UpdateProductBeforePrice(id string, p model.ProductPatch) error {
	head := model.ProductPatch{Name: p.Name, Description: p.Description}
	if head.Empty() {
		return ProductID(id)
	}
	return UpdateProduct(id, head)
}

// ProductID rejects a blank product id.
func ProductID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.Validation("Product ID cannot be empty")
	}
	return nil
}

// check turns the first validator failure into a classified validation error.
func check(err error, messages map[string]string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if msg, ok := messages[fe.StructField()+"."+fe.Tag()]; ok {
			return errs.Validation(msg)
		}
		return errs.Validation(fe.StructField() + " is invalid")
	}
	return errs.Unexpected(err)
}
