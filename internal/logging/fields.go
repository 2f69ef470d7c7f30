package logging

import "log/slog"

// Common structured log field keys to keep logs searchable/consistent.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldStatusCode = "status"
	FieldDurationMS = "duration_ms"
	FieldCount      = "count"
	FieldSessionID  = "session_id"
	FieldCode       = "code"
	FieldPlayerID   = "player_id"
	FieldEffect     = "effect"
	FieldVersion    = "version"
)

// Session returns the attributes identifying a session in log lines.
func Session(id, code string) []any {
	args := []any{FieldSessionID, id}
	if code != "" {
		args = append(args, FieldCode, code)
	}
	return args
}

// WithService appends the service field when provided.
func WithService(attrs []slog.Attr, service string) []slog.Attr {
	if service != "" {
		attrs = append(attrs, slog.String(FieldService, service))
	}
	return attrs
}
