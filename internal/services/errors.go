package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTemplateNotFound   = errors.New("template not found")
	ErrTemplateInvalid    = errors.New("template invalid")
	ErrTransport          = errors.New("transport error")
	ErrNetwork            = errors.New("network error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrSubmissionRejected = errors.New("submission rejected")
	ErrResultUnavailable  = errors.New("result unavailable")
	ErrInvalidInput       = errors.New("invalid input")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Marker returns the first sentinel marker found in err's chain, or nil.
func Marker(err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range []error{
		ErrInvalidInput,
		ErrTemplateNotFound,
		ErrTemplateInvalid,
		ErrServiceUnavailable,
		ErrSubmissionRejected,
		ErrResultUnavailable,
		ErrNetwork,
		ErrTransport,
	} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
