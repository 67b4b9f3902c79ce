package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed request
type ErrorKind int

const (
	// KindNetwork means no response reached the client
	KindNetwork ErrorKind = iota
	// KindUnauthorized is a 401 or expired session
	KindUnauthorized
	// KindValidation is a 4xx carrying a structured message
	KindValidation
	// KindUnexpected covers any other non-2xx or client-side failure
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	default:
		return "unexpected"
	}
}

// networkMessage is shown when the server could not be reached
const networkMessage = "could not reach the server, check your connection"

// APIError is returned for every failed request
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Kind == KindNetwork {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", networkMessage, e.Err)
		}
		return networkMessage
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is a transport-level failure
func IsNetwork(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNetwork
}

// IsUnauthorized reports whether err is a 401 response
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage returns text suitable for showing to a person: a connection
// hint for network failures, the server's message when it sent one, and
// fallback otherwise.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if apiErr.Kind == KindNetwork {
		return networkMessage
	}
	if apiErr.Message != "" && !isGenericMessage(apiErr.Message) {
		return apiErr.Message
	}
	return fallback
}

func genericMessage(status int) string {
	return fmt.Sprintf("request failed (%d)", status)
}

func isGenericMessage(msg string) bool {
	return strings.HasPrefix(msg, "request failed (")
}

// newStatusError builds an APIError from a non-2xx response body
func newStatusError(status int, body []byte) *APIError {
	msg := extractMessage(body)
	if msg == "" {
		msg = genericMessage(status)
	}

	kind := KindUnexpected
	switch {
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status >= 400 && status < 500 && !isGenericMessage(msg):
		kind = KindValidation
	}

	return &APIError{Kind: kind, Status: status, Message: msg}
}

// extractMessage pulls error/detail/message out of a JSON body. Each may be a
// string or a list of strings.
func extractMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	for _, key := range []string{"error", "detail", "message"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if msg := rawToMessage(raw); msg != "" {
			return msg
		}
	}
	return ""
}

func rawToMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "; "))
	}
	return ""
}
