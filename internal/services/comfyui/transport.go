package comfyui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"carousel/internal/logging"
	"carousel/internal/services"
)

// StatusError reports a completed HTTP exchange with a non-success status.
// It matches services.ErrTransport.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("comfyui request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Is reports whether target is services.ErrTransport.
func (e *StatusError) Is(target error) bool {
	return target == services.ErrTransport
}

type response struct {
	statusCode int
	body       []byte
}

// do performs one logical request. Network failures before a response is
// received are retried with a constant delay; status errors are permanent.
// A body read failure after the response arrived is only retried for GET.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) (response, error) {
	var resp response
	attempts := c.transportAttemptCount()
	attempt := 0

	operation := func() error {
		attempt++
		r, received, err := c.send(ctx, method, endpoint, body)
		if err == nil {
			resp = r
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return backoff.Permanent(err)
		}
		if received && method != http.MethodGet {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.transportDelay), uint64(attempts-1)),
		ctx,
	)
	notify := func(err error, delay time.Duration) {
		logging.WithContext(ctx, c.logger).Debug("request failed, retrying",
			logging.String("op", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return response{}, fmt.Errorf("comfyui %s: %w", op, ctxErr)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return response{}, err
	}
	return response{}, services.Wrap(services.ErrNetwork, "comfyui", op,
		fmt.Sprintf("%s %s failed after %d attempts (timeout=%s)", method, endpoint, attempt, c.httpClient.Timeout), err)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body []byte) (response, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return response{}, false, backoff.Permanent(fmt.Errorf("comfyui request: new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, false, fmt.Errorf("comfyui request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, true, fmt.Errorf("comfyui request: read body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return response{}, true, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return response{statusCode: resp.StatusCode, body: data}, true, nil
}

func (c *Client) transportAttemptCount() int {
	if c.transportAttempts <= 0 {
		return 1
	}
	return c.transportAttempts
}
