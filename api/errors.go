// ABOUTME: Typed transport failures for the REST client
// ABOUTME: Distinguishes network, unauthorized, missing backend, HTTP and upload failures
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind classifies a transport failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindUnauthorized
	KindNotFound
	KindHTTP
	KindUpload
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindHTTP:
		return "http"
	case KindUpload:
		return "upload"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Error is returned by every Client call that fails at the transport layer.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 && !strings.Contains(e.Message, fmt.Sprintf("%d", e.Status)) {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind so callers can write errors.Is(err, api.ErrUnauthorized).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Status == 0 && t.Message == "" && t.Kind == e.Kind
}

var (
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrHTTP         = &Error{Kind: KindHTTP}
	ErrUpload       = &Error{Kind: KindUpload}
	ErrDecode       = &Error{Kind: KindDecode}
)

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func networkError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "cannot connect to the backend, make sure it is running",
		Err:     err,
	}
}

// errorFromResponse builds a typed error from a non-2xx response.
func errorFromResponse(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Message: "unauthorized, check your login state"}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: resp.StatusCode, Message: "backend endpoint not available, the backend may not be running"}
	}

	msg := serverMessage(body)
	if msg == "" {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text)
	}
	return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: msg}
}

// serverMessage extracts the "error" or "message" field of a JSON error body.
func serverMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
