package content

import (
	"fmt"
	"regexp"
	"strings"

	"govorilka/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy = bluemonday.StrictPolicy()

	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const maxNameLength = 64

// Sanitize strips all HTML from the input string. It is applied to
// user-supplied text that gets stored and redistributed: display names,
// group names and message content.
func Sanitize(input string) string {
	return strings.TrimSpace(policy.Sanitize(input))
}

// ValidateName checks that a display or group name is non-empty after
// sanitization and not unreasonably long.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty: %w", models.ErrInvalidArgument)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name is too long: %w", models.ErrInvalidArgument)
	}
	return nil
}

// ValidateEmail performs a shallow syntactic check; deliverability is not
// verified.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address: %w", models.ErrInvalidArgument)
	}
	return nil
}
