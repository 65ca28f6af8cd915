// Package errors provides custom error types for catalog operations.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks network, DNS and connection failures, and calls
	// short-circuited by an open circuit breaker.
	ErrTransport = errors.New("transport error")
	// ErrHTTPStatus marks non-2xx responses from the catalog API.
	ErrHTTPStatus = errors.New("http status error")
	// ErrInvalidInput marks requests rejected before reaching the network.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDecode marks response bodies that could not be decoded.
	ErrDecode = errors.New("decode error")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
)

// Kind classifies a RemoteFetchError.
type Kind int

const (
	KindTransport Kind = iota
	KindHTTPStatus
	KindInvalidInput
	KindDecode
)

func (k Kind) sentinel() error {
	switch k {
	case KindHTTPStatus:
		return ErrHTTPStatus
	case KindInvalidInput:
		return ErrInvalidInput
	case KindDecode:
		return ErrDecode
	default:
		return ErrTransport
	}
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// RemoteFetchError is returned by every catalog fetch that fails.
// Message is user-facing text and is what the product store exposes.
type RemoteFetchError struct {
	Kind       Kind
	StatusCode int // set for KindHTTPStatus only
	Message    string
	Err        error
}

func (e *RemoteFetchError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is/As.
func (e *RemoteFetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func NewTransportError(err error) *RemoteFetchError {
	return &RemoteFetchError{Kind: KindTransport, Message: fmt.Sprintf("API call failed: %v", err), Err: err}
}

func NewHTTPStatusError(statusCode int, statusText string) *RemoteFetchError {
	return &RemoteFetchError{
		Kind:       KindHTTPStatus,
		StatusCode: statusCode,
		Message:    "API call failed: " + statusText,
	}
}

func NewInvalidInputError(message string) *RemoteFetchError {
	return &RemoteFetchError{Kind: KindInvalidInput, Message: message}
}

func NewDecodeError(err error) *RemoteFetchError {
	return &RemoteFetchError{Kind: KindDecode, Message: "API call failed: invalid response body", Err: err}
}

// NewResponseTooLargeError reports a body longer than limit bytes.
func NewResponseTooLargeError(limit int64) *RemoteFetchError {
	return &RemoteFetchError{
		Kind:    KindDecode,
		Message: fmt.Sprintf("API call failed: response body exceeds %d bytes", limit),
	}
}

// Message returns the user-facing text for err: the RemoteFetchError message
// when one is in the chain, err.Error() otherwise.
func Message(err error) string {
	var rfe *RemoteFetchError
	if errors.As(err, &rfe) {
		return rfe.Message
	}
	return err.Error()
}
