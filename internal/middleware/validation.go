package middleware

import (
	"errors"
	"regexp"
	"strings"
)

// Validation limits.
const (
	// MinNameLength is the minimum length for an account or candidate name.
	MinNameLength = 2

	// MaxNameLength is the maximum length for an account or candidate name.
	MaxNameLength = 50

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength bounds the work fed into the password hasher.
	MaxPasswordLength = 128

	// MaxEmailLength is the maximum length for an email address.
	MaxEmailLength = 254

	// MaxLevelLength is the maximum length for a study level.
	MaxLevelLength = 10

	// MinTitleLength is the minimum length for an election title.
	MinTitleLength = 3

	// MaxTitleLength is the maximum length for an election title.
	MaxTitleLength = 120

	// MaxPositionLength is the maximum length for a candidate position.
	MaxPositionLength = 100
)

// Validation errors.
var (
	ErrEmailRequired     = errors.New("email is required")
	ErrEmailInvalid      = errors.New("email is invalid")
	ErrEmailTooLong      = errors.New("email exceeds maximum length")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong   = errors.New("password exceeds maximum length")
	ErrNameLength        = errors.New("name must be between 2 and 50 characters")
	ErrStudentIDInvalid  = errors.New("student ID must be 3 to 20 characters of letters, digits, slash, underscore, or hyphen")
	ErrLevelTooLong      = errors.New("level exceeds maximum length")
	ErrCourseRequired    = errors.New("course is required for HND students")
	ErrTitleLength       = errors.New("title must be between 3 and 120 characters")
	ErrPositionRequired  = errors.New("position is required")
	ErrPositionTooLong   = errors.New("position exceeds maximum length")
)

// validEmailPattern is a permissive address shape check: one @ with a
// dotted domain. Deliverability is not checked here.
var validEmailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validStudentIDPattern matches registry-issued student identifiers
// such as "21/69/0069" or "CSC-123".
var validStudentIDPattern = regexp.MustCompile(`^[A-Za-z0-9/_-]{3,20}$`)

// ValidateEmail validates an account email address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !validEmailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword validates a plaintext password at registration.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateName validates an account or candidate display name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < MinNameLength || len(trimmed) > MaxNameLength {
		return ErrNameLength
	}
	return nil
}

// ValidateStudentID validates an optional student identifier.
// Empty is valid (staff accounts have no student ID).
func ValidateStudentID(studentID string) error {
	if studentID == "" {
		return nil
	}
	if !validStudentIDPattern.MatchString(studentID) {
		return ErrStudentIDInvalid
	}
	return nil
}

// ValidateLevel validates an optional study level such as "100" or "HND2".
func ValidateLevel(level string) error {
	if len(level) > MaxLevelLength {
		return ErrLevelTooLong
	}
	return nil
}

// ValidateLevelCourse enforces the registry rule that HND students must
// state their course. Levels are matched case-insensitively.
func ValidateLevelCourse(level, course string) error {
	if level == "" {
		return nil
	}
	if strings.HasPrefix(strings.ToUpper(level), "HND") && strings.TrimSpace(course) == "" {
		return ErrCourseRequired
	}
	return nil
}

// ValidateElectionTitle validates an election title.
func ValidateElectionTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if len(trimmed) < MinTitleLength || len(trimmed) > MaxTitleLength {
		return ErrTitleLength
	}
	return nil
}

// ValidatePosition validates a candidate's contested position.
func ValidatePosition(position string) error {
	trimmed := strings.TrimSpace(position)
	if trimmed == "" {
		return ErrPositionRequired
	}
	if len(trimmed) > MaxPositionLength {
		return ErrPositionTooLong
	}
	return nil
}
