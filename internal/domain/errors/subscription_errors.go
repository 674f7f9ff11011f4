package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature indicates the webhook signature did not verify against the shared secret
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload indicates a signed webhook body that could not be decoded
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrDuplicateEvent indicates the provider event id is already in processed_events
	ErrDuplicateEvent = errors.New("event already processed")

	// ErrEmailUnresolved indicates neither the event nor the customer profile carries an email
	ErrEmailUnresolved = errors.New("subscriber email could not be resolved")

	// ErrCustomerNotFound indicates the provider has no (live) customer with the given id
	ErrCustomerNotFound = errors.New("provider customer not found")
)

// ProviderError wraps a failed call to the payment provider API
type ProviderError struct {
	Provider string
	Op       string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsProviderError checks if an error came from the payment provider
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
