package sasl

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Security event types, NIST SP 800-92 oriented.
const (
	EventAuthentication = "authentication"
	EventDirectory      = "directory"
)

// Security event subtypes
const (
	SubtypeAuthAttempt = "attempt"
	SubtypeAuthSuccess = "success"
	SubtypeAuthFailure = "failure"

	SubtypeDirConnected = "connected"
	SubtypeDirFailed    = "failed"
	SubtypeDirClosed    = "closed"
)

// Security event outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAttempt = "attempt"
)

// Security event severities
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)

// SecurityEvent is one structured security log record.
type SecurityEvent struct {
	Timestamp string `json:"timestamp"`  // ISO 8601 UTC
	EventType string `json:"event_type"` // authentication, directory
	Subtype   string `json:"subtype"`    // attempt, success, failure
	Severity  string `json:"severity"`   // INFO, WARNING, ERROR

	// Identity & Context
	User          string `json:"user,omitempty"`
	Source        string `json:"source"`         // this library
	Target        string `json:"target"`         // directory servers / host
	CorrelationID string `json:"correlation_id"` // session-scoped UUID

	// Operation Details
	Outcome string         `json:"outcome"`
	Details map[string]any `json:"details,omitempty"`
}

// String returns the JSON representation of the event.
func (e *SecurityEvent) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// SecurityLogger generates and writes security events for one session.
// Events from one session share a correlation ID so a failed attempt can be
// traced across the attempt/failure pair.
type SecurityLogger struct {
	logger        *slog.Logger
	target        string
	correlationID string
}

// NewSecurityLogger creates a session-scoped security logger. A nil logger
// disables event emission.
func NewSecurityLogger(logger *slog.Logger, target string) *SecurityLogger {
	return &SecurityLogger{
		logger:        logger,
		target:        target,
		correlationID: uuid.New().String(),
	}
}

// CorrelationID returns the session-scoped event correlation ID.
func (l *SecurityLogger) CorrelationID() string {
	return l.correlationID
}

// LogAuthentication logs an authentication event.
func (l *SecurityLogger) LogAuthentication(subtype, outcome, severity, user string, details map[string]any) {
	l.logEvent(EventAuthentication, subtype, severity, outcome, user, details)
}

// LogDirectory logs a directory connection event.
func (l *SecurityLogger) LogDirectory(subtype, outcome, severity string, details map[string]any) {
	l.logEvent(EventDirectory, subtype, severity, outcome, "", details)
}

func (l *SecurityLogger) logEvent(eventType, subtype, severity, outcome, user string, details map[string]any) {
	if l == nil || l.logger == nil {
		return
	}

	event := &SecurityEvent{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EventType:     eventType,
		Subtype:       subtype,
		Severity:      severity,
		User:          user,
		Source:        "go-extauth",
		Target:        l.target,
		CorrelationID: l.correlationID,
		Outcome:       outcome,
		Details:       details,
	}
	if event.Details == nil {
		event.Details = make(map[string]any)
	}

	switch severity {
	case SeverityWarning:
		l.logger.Warn("SecurityEvent", "event", event)
	case SeverityError, SeverityCritical:
		l.logger.Error("SecurityEvent", "event", event)
	default:
		l.logger.Info("SecurityEvent", "event", event)
	}
}
