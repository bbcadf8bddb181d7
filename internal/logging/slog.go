package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyService    = "service"
	KeyEmailID    = "email_id"
	KeyFilename   = "filename"
	KeyMimeType   = "mime_type"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyProcessed  = "processed"
	KeyAttachment = "attachment_id"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Setup configures the default slog logger with a text handler writing to
// stderr at the given level. Unknown level strings fall back to info.
func Setup(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// EmailID returns a slog attribute for the mailbox message identifier.
func EmailID(id string) slog.Attr {
	return slog.String(KeyEmailID, id)
}

// Filename returns a slog attribute for an attachment filename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// MimeType returns a slog attribute for a declared content type.
func MimeType(mt string) slog.Attr {
	return slog.String(KeyMimeType, mt)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}
