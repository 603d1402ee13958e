package timelog

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports organization settings that must be filled in before
// anything is written.
type ConfigError struct {
	Organization string
	Missing      []string
}

func (e *ConfigError) Error() string {
	if e.Organization == "" {
		return fmt.Sprintf("missing settings: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("organization %s is missing settings: %s", e.Organization, strings.Join(e.Missing, ", "))
}

var (
	ErrNotEditable = errors.New("only logs created today or yesterday can be changed")
	ErrNotAssigned = errors.New("work item is assigned to someone else")
	ErrLogNotFound = errors.New("log not found")
)

// FieldError rejects a draft whose fields are out of range before any
// network call is made.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// CheckDuration validates the hour and minute inputs of a log.
func CheckDuration(hours, minutes int) error {
	if hours < 0 || hours > 23 {
		return &FieldError{Field: "hours", Message: "must be between 0 and 23"}
	}
	if minutes < 0 || minutes > 59 {
		return &FieldError{Field: "minutes", Message: "must be between 0 and 59"}
	}
	return nil
}
