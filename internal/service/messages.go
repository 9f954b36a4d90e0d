package service

import (
	"errors"

	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/session"
)

const (
	MessageSessionMissing = "Please log in to continue"
	MessageSessionExpired = "Invalid token. Redirecting to login."
)

// UserMessage converts a workflow error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		verr *ValidationError
		aerr *gateway.AuthError
		ferr *gateway.FetchError
		uerr *gateway.UploadError
		cerr *gateway.CreateError
	)
	switch {
	case errors.Is(err, gateway.ErrInvalidSession):
		return MessageSessionExpired
	case errors.Is(err, session.ErrSessionMissing):
		return MessageSessionMissing
	case errors.Is(err, ErrSubmissionInFlight):
		return MessageSubmitRunning
	case errors.Is(err, ErrLoadInFlight):
		return "Quotes are still loading"
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &aerr):
		return aerr.Message
	case errors.As(err, &ferr):
		return ferr.Message
	case errors.As(err, &uerr):
		return uerr.Message
	case errors.As(err, &cerr):
		return cerr.Message
	default:
		return err.Error()
	}
}
