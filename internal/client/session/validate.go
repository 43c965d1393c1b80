package session

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func validateNewPassword(password string) error {
	if err := validate.Var(password, "min=6"); err != nil {
		return ErrPasswordTooShort
	}
	return nil
}

func validateFullName(name string) error {
	if err := validate.Var(name, "min=2"); err != nil {
		return ErrNameTooShort
	}
	return nil
}
