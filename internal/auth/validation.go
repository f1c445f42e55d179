package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"parlour/internal/model"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const passwordSpecials = "@$!%*?&"

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ValidateLogin returns every problem with in, in field order.
func ValidateLogin(in LoginInput) []string {
	var errs []string
	errs = appendEmailErrors(errs, in.Email)
	if in.Password == "" {
		errs = append(errs, "Password is required")
	}
	return errs
}

// ValidateRegister returns every problem with in, in field order.
func ValidateRegister(in RegisterInput) []string {
	var errs []string

	name := strings.TrimSpace(in.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs = append(errs, "Name is required")
	case n < 2:
		errs = append(errs, "Name must be at least 2 characters long")
	case n > 50:
		errs = append(errs, "Name cannot exceed 50 characters")
	}

	errs = appendEmailErrors(errs, in.Email)

	if in.Password == "" {
		errs = append(errs, "Password is required")
	} else {
		if !strongPassword(in.Password) {
			errs = append(errs, "Password must contain at least one uppercase letter, one lowercase letter, one number and one special character")
		}
		if len(in.Password) < 8 {
			errs = append(errs, "Password must be at least 8 characters long")
		}
		if len(in.Password) > maxPasswordBytes {
			errs = append(errs, "Password cannot exceed 72 bytes")
		}
	}

	if in.Role == "" {
		errs = append(errs, "Role is required")
	} else if _, ok := model.ParseRole(in.Role); !ok {
		errs = append(errs, "Invalid role")
	}
	return errs
}

func appendEmailErrors(errs []string, email string) []string {
	email = strings.TrimSpace(email)
	if email == "" {
		return append(errs, "Email is required")
	}
	if !emailPattern.MatchString(email) {
		return append(errs, "Please enter a valid email address")
	}
	return errs
}

// strongPassword requires 8+ chars from [A-Za-z0-9@$!%*?&] with at least one of each class.
func strongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
