// Package exports renders snapshots of the client list to the blob store in
// the background and reports their progress over HTTP.
package exports

import (
	"bytes"
	"clientcore/internal/blob"
	"clientcore/internal/core"
	"clientcore/pkg/domain"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Format selects an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var (
	// ErrQueueFull is returned by EnqueueExport when the worker cannot accept more jobs.
	ErrQueueFull = errors.New("export queue full")
	// ErrExportNotFound reports an unknown or evicted export id.
	ErrExportNotFound = errors.New("export not found")
	// ErrArtifactNotFound reports a format the export did not (yet) produce.
	ErrArtifactNotFound = errors.New("export artifact not found")
	// ErrExportInProgress is returned when deleting a queued or running export.
	ErrExportInProgress = errors.New("export still in progress")
)

// Artifact is a rendered export stored in the blob store.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ETag        string    `json:"etag,omitempty"`
	Rows        int       `json:"rows"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows an export with the OR semantics of client search. An empty
// filter exports every client.
type Filter struct {
	IDNumber     *string `json:"idNumber,omitempty"`
	FirstName    *string `json:"firstName,omitempty"`
	MobileNumber *string `json:"mobileNumber,omitempty"`
}

func (f Filter) query() domain.ClientQuery {
	return domain.ClientQuery{IDNumber: f.IDNumber, FirstName: f.FirstName, MobileNumber: f.MobileNumber}
}

// Record tracks an export request and its artifacts.
type Record struct {
	ID          string     `json:"id"`
	Formats     []Format   `json:"formats"`
	Filter      Filter     `json:"filter"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (r Record) finished() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

func (r Record) artifact(format Format) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Format == format {
			return a, true
		}
	}
	return Artifact{}, false
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

// Input is an enqueue request.
type Input struct {
	Formats     []Format
	Filter      Filter
	RequestedBy string
}

// Scheduler queues exports and exposes their status.
type Scheduler interface {
	EnqueueExport(ctx context.Context, input Input) (Record, error)
	GetExport(id string) (Record, bool)
	OpenArtifact(ctx context.Context, id string, format Format) (Artifact, io.ReadCloser, error)
	DeleteExport(ctx context.Context, id string) error
}

// Source reads the clients to export.
type Source interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	SearchClients(ctx context.Context, query domain.ClientQuery) ([]domain.Client, error)
}

var _ Source = (*core.Service)(nil)

// Options tunes a Worker. Zero values take defaults. Retain bounds how many
// finished records are remembered; the oldest are forgotten first, their
// artifacts stay in the blob store.
type Options struct {
	QueueSize  int
	Attempts   uint
	RetryDelay time.Duration
	KeyPrefix  string
	Retain     int
	Logger     core.Logger
}

const (
	defaultQueueSize  = 32
	defaultAttempts   = 3
	defaultRetryDelay = 100 * time.Millisecond
	defaultKeyPrefix  = "exports"
	defaultRetain     = 256
)

// Worker executes exports asynchronously on a single goroutine.
type Worker struct {
	source Source
	store  blob.Store
	opts   Options
	logger core.Logger

	queue    chan string
	mu       sync.RWMutex
	jobs     map[string]*Record
	finished []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs an export worker writing artifacts to store.
func NewWorker(source Source, store blob.Store, opts Options) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Attempts == 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	if opts.Retain <= 0 {
		opts.Retain = defaultRetain
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		opts:   opts,
		logger: logger,
		queue:  make(chan string, opts.QueueSize),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the current job to finish.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// EnqueueExport validates the requested formats and schedules an export.
func (w *Worker) EnqueueExport(_ context.Context, input Input) (Record, error) {
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	unique := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{}, len(formats))
	for _, format := range formats {
		if format != FormatJSON && format != FormatCSV {
			return Record{}, fmt.Errorf("unsupported export format %q", format)
		}
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		unique = append(unique, format)
	}

	now := time.Now().UTC()
	record := Record{
		ID:          uuid.NewString(),
		Formats:     unique,
		Filter:      input.Filter,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.queue <- record.ID:
	default:
		return Record{}, ErrQueueFull
	}
	w.jobs[record.ID] = &record
	w.logger.Info("export queued", "export_id", record.ID, "formats", unique, "requested_by", input.RequestedBy)
	return record.copy(), nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// OpenArtifact streams the stored artifact of the given format. The caller
// closes the reader.
func (w *Worker) OpenArtifact(ctx context.Context, id string, format Format) (Artifact, io.ReadCloser, error) {
	record, ok := w.GetExport(id)
	if !ok {
		return Artifact{}, nil, ErrExportNotFound
	}
	artifact, ok := record.artifact(format)
	if !ok {
		return Artifact{}, nil, ErrArtifactNotFound
	}
	info, rc, err := w.store.Get(ctx, artifact.Key)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		return Artifact{}, nil, ErrArtifactNotFound
	case err != nil:
		return Artifact{}, nil, fmt.Errorf("open artifact %s: %w", artifact.Key, err)
	}
	artifact.SizeBytes = info.Size
	return artifact, rc, nil
}

// DeleteExport removes every blob under the export's key prefix and forgets
// the record. Queued and running exports cannot be deleted.
func (w *Worker) DeleteExport(ctx context.Context, id string) error {
	record, ok := w.GetExport(id)
	if !ok {
		return ErrExportNotFound
	}
	if !record.finished() {
		return ErrExportInProgress
	}
	prefix := path.Join(w.opts.KeyPrefix, id) + "/"
	stored, err := w.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list artifacts %s: %w", prefix, err)
	}
	for _, info := range stored {
		if _, err := w.store.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("delete artifact %s: %w", info.Key, err)
		}
	}

	w.mu.Lock()
	delete(w.jobs, id)
	for i, done := range w.finished {
		if done == id {
			w.finished = append(w.finished[:i], w.finished[i+1:]...)
			break
		}
	}
	w.mu.Unlock()
	w.logger.Info("export deleted", "export_id", id, "artifacts", len(stored))
	return nil
}

func (w *Worker) process(id string) {
	record, ok := w.GetExport(id)
	if !ok {
		return
	}
	w.update(id, func(r *Record) { r.Status = StatusRunning })

	var (
		clients []domain.Client
		err     error
	)
	if q := record.Filter.query(); q.Empty() {
		clients, err = w.source.ListClients(w.ctx)
	} else {
		clients, err = w.source.SearchClients(w.ctx, q)
	}
	if err != nil {
		w.fail(id, fmt.Errorf("load clients: %w", err))
		return
	}

	artifacts := make([]Artifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, contentType, err := render(format, clients)
		if err != nil {
			w.fail(id, err)
			return
		}
		key := path.Join(w.opts.KeyPrefix, id, "clients."+string(format))
		artifact, err := w.put(key, payload, contentType, format, len(clients))
		if err != nil {
			w.fail(id, err)
			return
		}
		artifacts = append(artifacts, artifact)
	}

	now := time.Now().UTC()
	w.update(id, func(r *Record) {
		r.Status = StatusSucceeded
		r.Error = ""
		r.Artifacts = artifacts
		r.CompletedAt = &now
		w.retireLocked(id)
	})
	w.logger.Info("export completed", "export_id", id, "artifacts", len(artifacts), "rows", len(clients))
}

// put writes one artifact with retries. An existing key is never retried.
func (w *Worker) put(key string, payload []byte, contentType string, format Format, rows int) (Artifact, error) {
	var info blob.Info
	err := retry.Do(
		func() error {
			var err error
			info, err = w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
				ContentType: contentType,
				Metadata:    map[string]string{"format": string(format), "rows": strconv.Itoa(rows)},
			})
			return err
		},
		retry.Context(w.ctx),
		retry.Attempts(w.opts.Attempts),
		retry.Delay(w.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, blob.ErrExists) }),
		retry.OnRetry(func(attempt uint, err error) {
			w.logger.Warn("export artifact write retry", "key", key, "attempt", attempt+1, "error", err)
		}),
	)
	if err != nil {
		return Artifact{}, fmt.Errorf("store artifact %s: %w", key, err)
	}

	artifact := Artifact{
		Key:         key,
		Format:      format,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		ETag:        info.ETag,
		Rows:        rows,
		CreatedAt:   time.Now().UTC(),
	}
	url, err := w.store.PresignURL(w.ctx, key, blob.SignedURLOptions{})
	switch {
	case err == nil:
		artifact.URL = url
	case !errors.Is(err, blob.ErrUnsupported):
		w.logger.Warn("export artifact presign failed", "key", key, "error", err)
	}
	return artifact, nil
}

func (w *Worker) update(id string, fn func(*Record)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if record, ok := w.jobs[id]; ok {
		fn(record)
		record.UpdatedAt = time.Now().UTC()
	}
}

func (w *Worker) fail(id string, err error) {
	now := time.Now().UTC()
	w.update(id, func(r *Record) {
		r.Status = StatusFailed
		r.Error = err.Error()
		r.CompletedAt = &now
		w.retireLocked(id)
	})
	w.logger.Error("export failed", "export_id", id, "error", err)
}

// retireLocked marks id finished and forgets the oldest finished records
// beyond the retention limit. w.mu must be held.
func (w *Worker) retireLocked(id string) {
	w.finished = append(w.finished, id)
	for len(w.finished) > w.opts.Retain {
		delete(w.jobs, w.finished[0])
		w.finished = w.finished[1:]
	}
}

var csvHeader = []string{"client", "firstName", "lastName", "idNumber", "mobileNumber"}

func render(format Format, clients []domain.Client) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(clients)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(csvHeader); err != nil {
			return nil, "", err
		}
		for _, c := range clients {
			row := []string{
				strconv.FormatInt(c.ID, 10),
				deref(c.FirstName),
				deref(c.LastName),
				deref(c.IDNumber),
				deref(c.MobileNumber),
			}
			if err := writer.Write(row); err != nil {
				return nil, "", err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
