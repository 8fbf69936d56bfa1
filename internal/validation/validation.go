// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
	MaxContentLength = 50000
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// ValidatePassword only bounds the password; strength rules are left to clients.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ValidateContent bounds post and comment bodies. Empty content is allowed.
func ValidateContent(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return fmt.Errorf("content too long (max %d characters)", MaxContentLength)
	}
	return nil
}
