package domain

// StatusKind classifies a user-visible outcome.
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the message shown to the user after a workflow settles.
type Status struct {
	Kind    StatusKind
	Message string
}

// Success builds a success status.
func Success(message string) Status {
	return Status{Kind: StatusSuccess, Message: message}
}

// Failure builds an error status.
func Failure(message string) Status {
	return Status{Kind: StatusError, Message: message}
}

// IsZero reports whether no status has been set.
func (s Status) IsZero() bool {
	return s.Kind == ""
}

// IsError reports whether s describes a failure.
func (s Status) IsError() bool {
	return s.Kind == StatusError
}
