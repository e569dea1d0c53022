package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return isValidUsername(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return isValidPassword(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate returns ErrInvalidCommand describing every failed field.
func (c Command) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return commonerrors.ErrInvalidCommand.WithCause(err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s: failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return commonerrors.ErrInvalidCommand.WithCause(errors.New(strings.Join(parts, "; ")))
}

func isValidUsername(value string) bool {
	if len(value) < constants.UsernameMinLength || len(value) > constants.UsernameMaxLength {
		return false
	}
	if !usernameRegex.MatchString(value) {
		return false
	}

	first, last := rune(value[0]), rune(value[len(value)-1])
	return (unicode.IsLetter(first) || unicode.IsDigit(first)) &&
		(unicode.IsLetter(last) || unicode.IsDigit(last))
}

func isValidPassword(value string) bool {
	if len(value) < constants.PasswordMinLength || len(value) > constants.PasswordMaxLength {
		return false
	}

	hasLetter := false
	hasDigit := false
	for _, r := range value {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}
	return false
}
