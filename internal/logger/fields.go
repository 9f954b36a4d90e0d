package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSessionKey identifies the browser or CLI session owning a credential.
	// Never the token itself.
	FieldSessionKey = "session_key"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldUsername is the authenticated username
	FieldUsername = "username"

	// FieldCommand is the CLI subcommand
	FieldCommand = "command"
)

// Metric fields, set per entry.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldOffset     = "offset"
)
