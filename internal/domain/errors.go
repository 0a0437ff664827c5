package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration: missing directories, classes, credentials or settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient: a vendor call failed in a way worth retrying once.
	ErrTransient = errors.New("transient invocation error")
	// ErrFatalInvocation: retries exhausted or the response was unusable.
	ErrFatalInvocation = errors.New("fatal invocation error")
	// ErrDataIntegrity: manifests or staged files disagree with the corpus.
	ErrDataIntegrity = errors.New("data integrity error")
)

// Configf wraps a formatted message with ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Integrityf wraps a formatted message with ErrDataIntegrity.
func Integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}

// StatusError is a non-success HTTP response from a vendor. It is transient.
type StatusError struct {
	Vendor string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Vendor, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Vendor, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrTransient }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// MalformedResponse marks err as a fatal, non-retryable decoding failure.
func MalformedResponse(vendor string, err error) error {
	return fmt.Errorf("%w: %s: malformed response: %w", ErrFatalInvocation, vendor, err)
}

// InvocationError is returned by the runner when a sample could not be classified.
type InvocationError struct {
	Vendor   string
	FileName string
	Attempts int
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s on %s failed after %d attempt(s): %v", e.Vendor, e.FileName, e.Attempts, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrFatalInvocation }
