package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"carousel/internal/services"
	"carousel/internal/services/comfyui"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindInvalidPrompt      Kind = "InvalidPrompt"
	KindTemplateNotFound   Kind = "TemplateNotFound"
	KindTemplateInvalid    Kind = "TemplateInvalid"
	KindTransportError     Kind = "TransportError"
	KindNetworkError       Kind = "NetworkError"
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindSubmissionRejected Kind = "SubmissionRejected"
	KindResultUnavailable  Kind = "ResultUnavailable"
	KindCanceled           Kind = "Canceled"
)

const serviceUnavailableMessage = "ComfyUI service is not available. Please check your connection and try again."

// Error is the only error type Generate returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns err as a *Error when it is one.
func AsError(err error) (*Error, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}

// KindOf returns the kind of a generation error, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if genErr, ok := AsError(err); ok {
		return genErr.Kind
	}
	return classify(context.Background(), err)
}

// Lines renders a result for callers that only display lines: on failure it
// returns a single "Error: <message>" line.
func Lines(lines []string, err error) []string {
	if err == nil {
		return lines
	}
	message := err.Error()
	if genErr, ok := AsError(err); ok {
		message = genErr.Message
	}
	return []string{"Error: " + message}
}

func newError(ctx context.Context, template string, err error) *Error {
	if genErr, ok := AsError(err); ok {
		return genErr
	}
	kind := classify(ctx, err)
	return &Error{Kind: kind, Message: message(kind, template, err), Err: err}
}

func classify(ctx context.Context, err error) Kind {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	switch services.Marker(err) {
	case services.ErrInvalidInput:
		return KindInvalidPrompt
	case services.ErrTemplateNotFound:
		return KindTemplateNotFound
	case services.ErrTemplateInvalid:
		return KindTemplateInvalid
	case services.ErrServiceUnavailable:
		return KindServiceUnavailable
	case services.ErrSubmissionRejected:
		return KindSubmissionRejected
	case services.ErrResultUnavailable:
		return KindResultUnavailable
	case services.ErrNetwork:
		return KindNetworkError
	default:
		return KindTransportError
	}
}

func message(kind Kind, template string, err error) string {
	switch kind {
	case KindInvalidPrompt:
		return "prompt is empty"
	case KindTemplateNotFound:
		return fmt.Sprintf("workflow template %q not found", template)
	case KindTemplateInvalid:
		return fmt.Sprintf("workflow template %q is invalid", template)
	case KindServiceUnavailable:
		return serviceUnavailableMessage
	case KindSubmissionRejected:
		return "the engine did not accept the workflow"
	case KindResultUnavailable:
		return "the result was not ready in time, try again shortly"
	case KindNetworkError:
		return "could not reach the execution engine"
	case KindCanceled:
		return "generation canceled"
	default:
		var statusErr *comfyui.StatusError
		if errors.As(err, &statusErr) {
			return fmt.Sprintf("execution engine returned %d %s", statusErr.StatusCode, http.StatusText(statusErr.StatusCode))
		}
		return "execution engine request failed"
	}
}
