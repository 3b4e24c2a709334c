package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any *Error with status 401.
var ErrUnauthorized = errors.New("api: unauthorized")

// ErrForbidden matches any *Error with status 403.
var ErrForbidden = errors.New("api: forbidden")

// ErrNotFound matches any *Error with status 404.
var ErrNotFound = errors.New("api: not found")

// Error is a non-2xx response from the storefront API.
type Error struct {
	Method    string
	Path      string
	Status    int
	Detail    string // server-provided message, empty when the body had none
	RequestID string
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: %s %s: HTTP %d: %s", e.Method, e.Path, e.Status, msg)
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Message returns the server-provided detail of err when it wraps an *Error
// carrying one, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// parseDetail extracts a human message from an error body. It understands
// {"detail": "..."}, {"detail": [{"msg": "..."}]} and {"message": "..."}.
func parseDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &list); err == nil {
			msgs := make([]string, 0, len(list))
			for _, item := range list {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return payload.Message
}
