package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrPublisherRequired = sterrors.New("replyflow: publisher is required")
	ErrTopicRequired     = sterrors.New("replyflow: topic is required")
	ErrConfigRequired    = sterrors.New("replyflow: configuration is required")
	ErrLoggerRequired    = sterrors.New("replyflow: logger is required")
	ErrSinkURLRequired   = sterrors.New("replyflow: sink URL is required")
)

// ConfigValidationError reports a configuration that failed Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("replyflow: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
