package utils

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validation errors
var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordNotComplex = errors.New("password must include at least one uppercase letter, one lowercase letter, one digit, and one special character")
	ErrInvalidResetCode   = errors.New("invalid reset code")
)

var (
	lowercaseRegex = regexp.MustCompile(`[a-z]`)
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	digitRegex     = regexp.MustCompile(`\d`)
	specialRegex   = regexp.MustCompile(`[@$!%*?&#^()_\-+=.,]`)
	clockTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
)

// PasswordRule checks password length and complexity.
var PasswordRule = validation.By(validatePassword)

// TimezoneRule accepts an empty value or any IANA zone name.
var TimezoneRule = validation.By(func(value interface{}) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return errors.New("must be a valid IANA timezone")
	}
	return nil
})

// ClockTimeRule accepts HH:MM or HH:MM:SS.
var ClockTimeRule = validation.Match(clockTimeRegex).Error("must be a time of day in HH:MM format")

// ValidatePasswordReset validates the reset code and new password.
func ValidatePasswordReset(resetCode, newPassword string) error {
	return validation.Errors{
		"code":         validation.Validate(resetCode, validation.Required.Error(ErrInvalidResetCode.Error())),
		"new_password": validation.Validate(newPassword, validation.Required, PasswordRule),
	}.Filter()
}

func validatePassword(value interface{}) error {
	password, _ := value.(string)
	if password == "" {
		return nil
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if !lowercaseRegex.MatchString(password) ||
		!uppercaseRegex.MatchString(password) ||
		!digitRegex.MatchString(password) ||
		!specialRegex.MatchString(password) {
		return ErrPasswordNotComplex
	}
	return nil
}

// NormalizeClockTime trims a validated HH:MM[:SS] value to HH:MM.
func NormalizeClockTime(value string) string {
	if len(value) > 5 {
		return value[:5]
	}
	return value
}
