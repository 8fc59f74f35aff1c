package auth

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SignupInput is the signup form. Fields are checked in declaration order
// and only the first failure is reported.
type SignupInput struct {
	Name     string     `form:"name" validate:"required,max=50"`
	Email    string     `form:"email" validate:"required,email"`
	Password string     `form:"password" validate:"required,min=6,maxbytes=72"`
	Client   ClientInfo `form:"-" validate:"-"`
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string     `form:"email" validate:"required,email"`
	Password string     `form:"password" validate:"required"`
	Client   ClientInfo `form:"-" validate:"-"`
}

// ClientInfo identifies the caller for audit records and rate limiting.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report form field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// validateInput returns a *ValidationError for the first violated field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		}
	}
	return err
}

func fieldMessage(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + param + " characters long"
	case "max":
		return "must be at most " + param + " characters long"
	case "maxbytes":
		return "must be at most " + param + " bytes long"
	default:
		return "is invalid"
	}
}

func (in *SignupInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

func (in *LoginInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
}
