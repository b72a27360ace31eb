package session

import (
	"errors"
	"regexp"
	"strings"
)

// Mode selects which auth variant the shared pipeline submits.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) failureMessage() string {
	if m == ModeRegister {
		return "Registration failed"
	}
	return "Login failed"
}

// Form carries the fields of either auth variant. Registration-only
// fields are ignored when validating a login.
type Form struct {
	Username        string
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validation only avoids wasted round trips; the server remains the
// authority and may reject for reasons not pre-checked here.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks the form client-side before any network call.
func (f Form) Validate(mode Mode) error {
	if strings.TrimSpace(f.Username) == "" {
		return errors.New("Username is required")
	}
	if f.Password == "" {
		return errors.New("Password is required")
	}
	if mode == ModeLogin {
		return nil
	}

	if len(f.Password) < 8 {
		return errors.New("Password must be at least 8 characters long")
	}
	if f.Password != f.ConfirmPassword {
		return errors.New("Passwords do not match")
	}
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("Name is required")
	}
	if strings.TrimSpace(f.Email) == "" {
		return errors.New("Email is required")
	}
	if !emailRe.MatchString(f.Email) {
		return errors.New("Please enter a valid email address")
	}
	return nil
}
