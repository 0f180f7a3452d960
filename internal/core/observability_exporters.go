package core

import (
	"clientcore/pkg/domain"
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// traceRetention bounds the spans JSONTraceTracer keeps for Entries.
const traceRetention = 1024

type requestIDKey struct{}

// WithRequestID returns a context carrying the HTTP request id, so service
// logs and trace spans can be joined with the access log line.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func outcome(success bool) string {
	if success {
		return string(AuditStatusSuccess)
	}
	return string(AuditStatusError)
}

// ExpvarMetricsRecorder mirrors the Prometheus operation series in expvar for
// deployments without a scraper. Both maps are keyed "<operation>:<status>",
// the label pair of operations_total.
type ExpvarMetricsRecorder struct {
	name    string
	total   expvar.Map
	seconds expvar.Map
}

// ExpvarMetricsSnapshot is a copy of the counters at one point in time.
type ExpvarMetricsSnapshot struct {
	Operations map[string]int64   `json:"operations_total"`
	Seconds    map[string]float64 `json:"operation_duration_seconds_sum"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated clientcore_service_metrics_<n> name when name is empty. expvar
// names are process global, so a name may only be used once.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("clientcore_service_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{name: name}
	rec.total.Init()
	rec.seconds.Init()
	root := new(expvar.Map).Init()
	root.Set("operations_total", &rec.total)
	root.Set("operation_duration_seconds_sum", &rec.seconds)
	expvar.Publish(name, root)
	return rec
}

// Name returns the expvar name the recorder is published under.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	key := operation + ":" + outcome(success)
	r.total.Add(key, 1)
	r.seconds.AddFloat(key, duration.Seconds())
}

// Snapshot copies the current counters.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	snap := ExpvarMetricsSnapshot{
		Operations: make(map[string]int64),
		Seconds:    make(map[string]float64),
	}
	r.total.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok {
			snap.Operations[kv.Key] = v.Value()
		}
	})
	r.seconds.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Float); ok {
			snap.Seconds[kv.Key] = v.Value()
		}
	})
	return snap
}

// JSONTraceEntry is one finished client operation span.
type JSONTraceEntry struct {
	Operation  string            `json:"operation"`
	Entity     domain.EntityType `json:"entity"`
	ClientID   string            `json:"client_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	DurationMS float64           `json:"duration_ms"`
	StartedAt  time.Time         `json:"started_at"`
}

// JSONTraceTracer writes one JSON line per finished span and keeps the most
// recent traceRetention spans in memory.
type JSONTraceTracer struct {
	mu      sync.Mutex
	enc     *json.Encoder
	entries []JSONTraceEntry
}

// NewJSONTracer returns a tracer writing to w. With a nil writer spans are
// only retained.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns the retained spans, oldest first.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{
		tracer: t,
		entry: JSONTraceEntry{
			Operation: operation,
			Entity:    domain.EntityClient,
			RequestID: RequestIDFrom(ctx),
			StartedAt: time.Now().UTC(),
		},
	}
}

func (t *JSONTraceTracer) finish(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if n := len(t.entries); n > traceRetention {
		t.entries = append(t.entries[:0], t.entries[n-traceRetention:]...)
	}
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}

type jsonTraceSpan struct {
	tracer *JSONTraceTracer
	entry  JSONTraceEntry
}

// SetClientID records the client the operation touched.
func (s *jsonTraceSpan) SetClientID(id string) {
	s.entry.ClientID = id
}

func (s *jsonTraceSpan) End(err error) {
	s.entry.Status = outcome(err == nil)
	if err != nil {
		s.entry.Error = err.Error()
	}
	s.entry.DurationMS = float64(time.Since(s.entry.StartedAt)) / float64(time.Millisecond)
	s.tracer.finish(s.entry)
}
