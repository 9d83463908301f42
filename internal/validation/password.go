package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "12345678": {}, "123456789": {}, "qwertyui": {},
	"qwerty123": {}, "iloveyou": {}, "11111111": {}, "abc12345": {}, "letmein1": {},
	"sunshine": {}, "princess": {}, "football": {}, "baseball": {}, "welcome1": {},
}

// ValidatePassword rejects short, all-digit, common, or username-like passwords.
func ValidatePassword(password, username string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errors.New("This password is too short. It must contain at least 8 characters.")
	}
	if isNumeric(password) {
		return errors.New("This password is entirely numeric.")
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		return errors.New("This password is too common.")
	}
	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return errors.New("The password is too similar to the username.")
	}
	return nil
}

// ValidateUsername applies the signup username rules outside of a form.
func ValidateUsername(username string) error {
	if errs := fieldErrors(&struct {
		Username string `form:"username" validate:"required,max=150,username"`
	}{username}); errs != nil {
		return errors.New(errs["username"])
	}
	return nil
}

// ValidateGroupSlug applies the group slug rules outside of a form.
func ValidateGroupSlug(slug string) error {
	if errs := fieldErrors(&struct {
		Slug string `form:"slug" validate:"required,max=50,slug"`
	}{slug}); errs != nil {
		return errors.New(errs["slug"])
	}
	return nil
}
