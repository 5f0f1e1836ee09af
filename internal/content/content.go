package content

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const MaxUserIDLength = 35

var (
	policy       = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
	userIDRegex  = regexp.MustCompile(`^[a-zA-Z0-9@.+_-]+$`)
)

// Sanitize removes unsafe HTML from the input string.
// It is used for user supplied chat messages before they are fanned out.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// Strip removes all markup, leaving plain text suitable for a terminal.
func Strip(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// ValidateUserID checks that a user id is non-empty, at most
// MaxUserIDLength long and contains only letters, digits and @ . + - _.
func ValidateUserID(userID string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}
	if len(userID) > MaxUserIDLength {
		return fmt.Errorf("user id is longer than %d characters", MaxUserIDLength)
	}
	if !userIDRegex.MatchString(userID) {
		return errors.New("user id contains invalid characters (allowed: letters, digits, @ . + - _)")
	}
	return nil
}
