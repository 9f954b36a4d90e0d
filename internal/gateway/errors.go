package gateway

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidSession reports that the server rejected the credential. The caller
// must end the current session.
var ErrInvalidSession = errors.New("gateway: invalid or expired session")

const (
	defaultAuthMessage   = "Login failed"
	defaultFetchMessage  = "Error fetching quotes"
	defaultUploadMessage = "Failed to upload file"
	defaultCreateMessage = "Failed to create quote"
)

// AuthError is returned by Authenticate when the server refuses the username/OTP pair
// or cannot be reached.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string { return formatError("authenticate", e.StatusCode, e.Message, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// FetchError is any ListQuotes failure other than an invalid session.
type FetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string { return formatError("list quotes", e.StatusCode, e.Message, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// UploadCause separates transport problems from contract mismatches.
type UploadCause string

const (
	UploadTransport  UploadCause = "transport"
	UploadStatus     UploadCause = "status"
	UploadMissingURL UploadCause = "missing_url"
	UploadInvalid    UploadCause = "invalid_file"
)

// UploadError is returned when hosting the media file fails.
type UploadError struct {
	Cause      UploadCause
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	return formatError("upload media ("+string(e.Cause)+")", e.StatusCode, e.Message, e.Err)
}
func (e *UploadError) Unwrap() error { return e.Err }

// CreateError is returned by CreateQuote. Err wraps ErrInvalidSession when the
// server rejected the token.
type CreateError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *CreateError) Error() string { return formatError("create quote", e.StatusCode, e.Message, e.Err) }
func (e *CreateError) Unwrap() error { return e.Err }

// IsInvalidSession reports whether err means the credential must be discarded.
func IsInvalidSession(err error) bool {
	return errors.Is(err, ErrInvalidSession)
}

func formatError(op string, status int, message string, cause error) string {
	b := strings.Builder{}
	b.WriteString("gateway: ")
	b.WriteString(op)
	if status != 0 {
		b.WriteString(" (status=")
		b.WriteString(strconv.Itoa(status))
		b.WriteString(")")
	}
	if m := strings.TrimSpace(message); m != "" {
		b.WriteString(": ")
		b.WriteString(m)
	}
	if cause != nil && cause != ErrInvalidSession {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

// errorBody holds the fields the service uses to explain a failure.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// serverMessage extracts "message", then "error", from a JSON body.
func serverMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if m := strings.TrimSpace(eb.Message); m != "" {
		return m
	}
	return strings.TrimSpace(eb.Error)
}

// invalidToken recognizes the service's explicit rejection of a credential.
func invalidToken(status int, body []byte) bool {
	if status == 401 {
		return true
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(eb.Error), "invalid token") ||
		strings.EqualFold(strings.TrimSpace(eb.Message), "invalid token")
}
