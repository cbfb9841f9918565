package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of session change being logged.
type AuditEvent string

const (
	AuditLogin          AuditEvent = "login"
	AuditSignUp         AuditEvent = "signup"
	AuditLogout         AuditEvent = "logout"
	AuditLoginRejected  AuditEvent = "login_rejected"
	AuditSignUpRejected AuditEvent = "signup_rejected"
)

// auditLogger wraps slog.Logger for structured audit logging of sign-in
// activity.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logEvent records a session change for the administrator with email.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, email string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("email", email),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure records a rejected form submission. Passwords never reach it.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
