package core

import (
	"clientcore/pkg/domain"
	"context"
	"time"
)

// Logger captures the structured logging surface the service relies on.
// Arguments after msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the current time for audit timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// AuditStatus captures the outcome of an audited operation.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes a single mutating service operation.
type AuditEntry struct {
	Operation string            `json:"operation"`
	Entity    domain.EntityType `json:"entity"`
	Action    domain.Action     `json:"action"`
	EntityID  string            `json:"entity_id,omitempty"`
	Status    AuditStatus       `json:"status"`
	Error     string            `json:"error,omitempty"`
	Change    domain.Change     `json:"change"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// LogAuditRecorder writes every audit entry as one structured "audit" line,
// carrying the record snapshots as JSON strings.
type LogAuditRecorder struct {
	logger Logger
}

// NewLogAuditRecorder returns a recorder writing through logger.
func NewLogAuditRecorder(logger Logger) *LogAuditRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogAuditRecorder{logger: logger}
}

// Record implements AuditRecorder.
func (r *LogAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	kv := []any{
		"operation", entry.Operation,
		"entity", string(entry.Entity),
		"action", string(entry.Action),
		"entity_id", entry.EntityID,
		"status", string(entry.Status),
		"duration", entry.Duration,
	}
	if entry.Change.Before.Defined() {
		kv = append(kv, "before", string(entry.Change.Before.Raw()))
	}
	if entry.Change.After.Defined() {
		kv = append(kv, "after", string(entry.Change.After.Raw()))
	}
	if entry.Error != "" {
		kv = append(kv, "error", entry.Error)
	}
	r.logger.Info("audit", kv...)
}

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// clientSpan is implemented by spans that record the client id an operation
// touched.
type clientSpan interface {
	SetClientID(id string)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type auditDescriptor struct {
	entity domain.EntityType
	action domain.Action
}

// auditedOperations lists the operations that produce audit entries.
var auditedOperations = map[string]auditDescriptor{
	opCreateClient: {entity: domain.EntityClient, action: domain.ActionCreate},
	opUpdateClient: {entity: domain.EntityClient, action: domain.ActionUpdate},
	opDeleteClient: {entity: domain.EntityClient, action: domain.ActionDelete},
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, change domain.Change, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, AuditStatusSuccess, nil, change, duration)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, err error, change domain.Change, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, AuditStatusError, err, change, duration)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, status AuditStatus, err error, change domain.Change, duration time.Duration) {
	desc, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    desc.entity,
		Action:    desc.action,
		EntityID:  entityID,
		Status:    status,
		Change:    change,
		Duration:  duration,
		Timestamp: s.now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
