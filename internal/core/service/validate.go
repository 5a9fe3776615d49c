package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/issuedesk/tracker/internal/core/domain"
)

const (
	msgRequired      = "This field is required."
	msgBlank         = "This field may not be blank."
	msgInvalidEmail  = "Enter a valid email address."
	msgReadOnly      = "This field is read-only."
	msgPasswordMatch = "Password fields didn't match."

	minPasswordLength = 8
	maxNameLength     = 150
)

var validate = validator.New()

// requireText trims s and records a blank or over-long value against field.
// It returns the trimmed value.
func requireText(ve *domain.ValidationError, field, s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		ve.Add(field, msgBlank)
		return s
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		ve.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
	}
	return s
}

func checkPassword(ve *domain.ValidationError, field, password string) {
	if password == "" {
		ve.Add(field, msgBlank)
		return
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		ve.Add(field, fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLength))
	}
}

func checkEmail(ve *domain.ValidationError, email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		ve.Add("email", msgBlank)
		return email
	}
	if err := validate.Var(email, "email"); err != nil {
		ve.Add("email", msgInvalidEmail)
	}
	return email
}

// checkUsername accepts letters, digits and @ . + - _ up to 150 characters.
func checkUsername(ve *domain.ValidationError, username string) {
	if username == "" {
		ve.Add("username", msgBlank)
		return
	}
	if utf8.RuneCountInString(username) > maxNameLength {
		ve.Add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
		return
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		ve.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
		return
	}
}

func invalidChoice(value string) string {
	return fmt.Sprintf("%q is not a valid choice.", value)
}
