package ltapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetryLater marks a transient server condition (overload or
	// gateway timeout); the caller should retry on the next cycle
	// instead of surfacing a hard failure.
	ErrRetryLater = errors.New("languagetool is temporarily unavailable, try again later")

	// ErrPremiumRequired is returned before any network traffic when an
	// operation needs premium credentials that are not configured.
	ErrPremiumRequired = errors.New("a premium account with username and api_key is required")
)

// StatusError is any other non-success HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("languagetool returned status %d: %s", e.Code, e.Body)
}

const maxErrorBody = 300

func statusToError(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	if code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout {
		return ErrRetryLater
	}
	msg := string(body)
	if msg == "" {
		msg = "unknown error"
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return &StatusError{Code: code, Body: msg}
}
