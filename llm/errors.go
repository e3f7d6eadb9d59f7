package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUnavailable marks network failures and timeouts reaching the
	// provider. Callers render it as a "try again" message.
	ErrUnavailable = errors.New("llm: provider unavailable")

	// ErrMalformedResponse marks a 2xx reply whose body is missing the
	// expected text field. Rendered like a provider error, logged apart.
	ErrMalformedResponse = errors.New("llm: malformed provider response")
)

// ProviderError is an application-level error returned by the remote side
// (non-2xx status with an error envelope).
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: provider http %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: provider http %d: %s", e.StatusCode, e.Message)
}

// WrapTransportErr classifies an error from the HTTP round trip. Context
// cancellation, deadline expiry and net errors all become ErrUnavailable so
// the orchestrator has a single "could not reach the provider" branch.
func WrapTransportErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
