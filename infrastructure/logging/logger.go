// Package logging provides structured logging with trace ID support
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// TenantIDKey is the context key for tenant ID
	TenantIDKey ContextKey = "tenant_id"
	// AgentIDKey is the context key for agent ID
	AgentIDKey ContextKey = "agent_id"
	// ServiceKey is the context key for service name
	ServiceKey ContextKey = "service"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a new Logger instance
func New(service, level, format string) *Logger {
	logger := logrus.New()

	// Set log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set formatter
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{
		Logger:  logger,
		service: service,
	}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT environment variables.
// Defaults to "info" and "json" when unset.
func NewFromEnv(service string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(service, level, format)
}

// WithContext creates a new logger entry with context values
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)

	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if tenantID := ctx.Value(TenantIDKey); tenantID != nil {
		entry = entry.WithField("tenant_id", tenantID)
	}
	if agentID := ctx.Value(AgentIDKey); agentID != nil {
		entry = entry.WithField("agent_id", agentID)
	}

	return entry
}

// WithTraceID creates a new logger entry with trace ID
func (l *Logger) WithTraceID(traceID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service":  l.service,
		"trace_id": traceID,
	})
}

// WithTenant creates a new logger entry scoped to a tenant
func (l *Logger) WithTenant(tenantID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service":   l.service,
		"tenant_id": tenantID,
	})
}

// WithAgent creates a new logger entry scoped to an agent
func (l *Logger) WithAgent(agentID, kind string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service":  l.service,
		"agent_id": agentID,
		"kind":     kind,
	})
}

// WithTask creates a new logger entry scoped to a task
func (l *Logger) WithTask(taskID, kind string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service": l.service,
		"task_id": taskID,
		"kind":    kind,
	})
}

// WithFields creates a new logger entry with custom fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["service"] = l.service
	return l.Logger.WithFields(fields)
}

// WithError creates a new logger entry with error
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service": l.service,
		"error":   err.Error(),
	})
}

// SetOutput sets the logger output
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// Context helper functions

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithTenantID adds a tenant ID to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantID retrieves the tenant ID from context
func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}

// WithAgentID adds an agent ID to the context
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

// GetAgentID retrieves the agent ID from context
func GetAgentID(ctx context.Context) string {
	if agentID, ok := ctx.Value(AgentIDKey).(string); ok {
		return agentID
	}
	return ""
}

// Structured logging helpers for orchestrator domain events

// LogAgentTransition logs an agent state machine transition.
func (l *Logger) LogAgentTransition(ctx context.Context, agentID, from, to string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"agent_id": agentID,
		"from":     from,
		"to":       to,
	}).Info("agent state transition")
}

// LogTaskOutcome logs the terminal outcome of a task attempt.
func (l *Logger) LogTaskOutcome(ctx context.Context, taskID, kind, status string, attempts int, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"task_id":  taskID,
		"kind":     kind,
		"status":   status,
		"attempts": attempts,
	})
	if err != nil {
		entry.WithError(err).Warn("task outcome")
	} else {
		entry.Info("task outcome")
	}
}

// LogEvidenceIngested logs a successful or duplicate evidence submission.
func (l *Logger) LogEvidenceIngested(ctx context.Context, evidenceID, tenantID, kind string, duplicate bool) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"evidence_id": evidenceID,
		"tenant_id":   tenantID,
		"kind":        kind,
		"duplicate":   duplicate,
	}).Info("evidence ingested")
}

// LogBreakerStateChange logs a circuit breaker state transition.
func (l *Logger) LogBreakerStateChange(ctx context.Context, target, from, to string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"target": target,
		"from":   from,
		"to":     to,
	}).Warn("circuit breaker state change")
}

// LogAudit logs an audit event
func (l *Logger) LogAudit(ctx context.Context, action, subjectKind, subjectID, actor string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"action":       action,
		"subject_kind": subjectKind,
		"subject_id":   subjectID,
		"actor":        actor,
		"audit":        true,
	}).Info("audit log")
}

// Error logging with stack trace

// LogErrorWithStack logs an error with additional context
func (l *Logger) LogErrorWithStack(ctx context.Context, err error, message string, fields map[string]interface{}) {
	logFields := logrus.Fields{
		"error": err.Error(),
	}
	for k, v := range fields {
		logFields[k] = v
	}

	l.WithContext(ctx).WithFields(logFields).Error(message)
}

// Fatal logs a fatal error and exits
func (l *Logger) Fatal(ctx context.Context, message string, err error) {
	l.WithContext(ctx).WithError(err).Fatal(message)
}

// Development helpers

// Debug logs a debug message (only when the logger's level is Debug or Trace)
func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	if l.Logger.Level >= logrus.DebugLevel {
		l.WithContext(ctx).WithFields(fields).Debug(message)
	}
}

// Info logs an info message
func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Info(message)
}

// Warn logs a warning message
func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Warn(message)
}

// Error logs an error message
func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	entry := l.WithContext(ctx)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.WithFields(fields).Error(message)
}

// Helper to format duration in milliseconds
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}
