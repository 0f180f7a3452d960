// Package core implements the client service: rule evaluation, cross-record
// uniqueness checks and the transactional CRUD operations exposed to adapters.
package core

import (
	"clientcore/internal/infra/persistence/memory"
	"clientcore/pkg/domain"
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	opCreateClient  = "create_client"
	opUpdateClient  = "update_client"
	opFindClient    = "find_client"
	opDeleteClient  = "delete_client"
	opSearchClients = "search_clients"
	opListClients   = "list_clients"
)

// Service exposes higher-level transactional CRUD operations for client records.
type Service struct {
	store      domain.PersistentStore
	engine     *domain.RulesEngine
	extraRules []domain.Rule
	logger     Logger
	clock      Clock
	audit      AuditRecorder
	metrics    MetricsRecorder
	tracer     Tracer
}

// NewService constructs a service backed by the supplied store. Without
// WithRulesEngine the default client rules apply.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		engine:  NewDefaultRulesEngine(),
		logger:  noopLogger{},
		clock:   ClockFunc(time.Now),
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if len(svc.extraRules) > 0 {
		engine := domain.NewRulesEngine()
		for _, rule := range svc.engine.Rules() {
			engine.Register(rule)
		}
		for _, rule := range svc.extraRules {
			engine.Register(rule)
		}
		svc.engine = engine
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Validate runs the rules engine and returns a ValidationError carrying every
// blocking reason in evaluation order, or nil.
func (s *Service) Validate(ctx context.Context, client domain.Client) error {
	res, err := s.engine.Evaluate(ctx, client)
	if err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("client rule warning", "rule", v.Rule, "message", v.Message)
		}
	}
	return res.Err()
}

// CreateClient validates and stores a new client, returning its identifier.
func (s *Service) CreateClient(ctx context.Context, client domain.Client) (int64, error) {
	var (
		id     int64
		change domain.Change
	)
	err := s.run(ctx, opCreateClient, func() string { return formatID(id) }, &change, func(ctx context.Context) error {
		if err := s.Validate(ctx, client); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if client.MobileNumber != nil {
				used, err := tx.FieldExists(domain.FieldMobileNumber, *client.MobileNumber)
				if err != nil {
					return err
				}
				if used {
					return domain.NewValidationError("Client creation failed: Existing mobileNumber")
				}
			}
			if client.IDNumber != nil {
				used, err := tx.FieldExists(domain.FieldIDNumber, *client.IDNumber)
				if err != nil {
					return err
				}
				if used {
					return domain.NewValidationError("Client creation failed: Existing idNumber")
				}
			}
			var err error
			if id, err = tx.Insert(client); err != nil {
				return err
			}
			stored := client.Clone()
			stored.ID = id
			change.After = domain.SnapshotClient(stored)
			return nil
		})
	})
	return id, err
}

// UpdateClient replaces every field of the client stored under id. Uniqueness
// is only enforced for values that differ from the stored record.
func (s *Service) UpdateClient(ctx context.Context, id int64, client domain.Client) (domain.Client, error) {
	var (
		updated domain.Client
		change  domain.Change
	)
	err := s.run(ctx, opUpdateClient, func() string { return formatID(id) }, &change, func(ctx context.Context) error {
		if err := s.Validate(ctx, client); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			existing, ok, err := tx.FindByID(id)
			if err != nil {
				return err
			}
			if !ok {
				return clientNotFound(id)
			}
			change.Before = domain.SnapshotClient(existing)
			if client.MobileNumber != nil && !sameValue(existing.MobileNumber, client.MobileNumber) {
				used, err := tx.FieldExists(domain.FieldMobileNumber, *client.MobileNumber)
				if err != nil {
					return err
				}
				if used {
					return domain.NewValidationError("Client update failed: Existing mobileNumber")
				}
			}
			if client.IDNumber != nil && !sameValue(existing.IDNumber, client.IDNumber) {
				used, err := tx.FieldExists(domain.FieldIDNumber, *client.IDNumber)
				if err != nil {
					return err
				}
				if used {
					return domain.NewValidationError("Client update failed: Existing idNumber")
				}
			}
			replacement := client.Clone()
			replacement.ID = id
			if err := tx.Update(id, replacement); err != nil {
				return err
			}
			updated = replacement
			change.After = domain.SnapshotClient(replacement)
			return nil
		})
	})
	return updated, err
}

// FindClient returns the client stored under id.
func (s *Service) FindClient(ctx context.Context, id int64) (domain.Client, error) {
	var found domain.Client
	err := s.run(ctx, opFindClient, func() string { return formatID(id) }, nil, func(ctx context.Context) error {
		return s.store.View(ctx, func(tx domain.Transaction) error {
			client, ok, err := tx.FindByID(id)
			if err != nil {
				return err
			}
			if !ok {
				return clientNotFound(id)
			}
			found = client
			return nil
		})
	})
	return found, err
}

// RemoveClient deletes the client stored under id.
func (s *Service) RemoveClient(ctx context.Context, id int64) error {
	var change domain.Change
	return s.run(ctx, opDeleteClient, func() string { return formatID(id) }, &change, func(ctx context.Context) error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			existing, ok, err := tx.FindByID(id)
			if err != nil {
				return err
			}
			if ok {
				change.Before = domain.SnapshotClient(existing)
			}
			removed, err := tx.Delete(id)
			if err != nil {
				return err
			}
			if !removed {
				return &domain.NotFoundError{Detail: fmt.Sprintf("Client removal failed for id: %d", id)}
			}
			return nil
		})
	})
}

// SearchClients returns every client matching any supplied criterion, ordered
// by id. A query without criteria yields an empty list.
func (s *Service) SearchClients(ctx context.Context, query domain.ClientQuery) ([]domain.Client, error) {
	out := make([]domain.Client, 0)
	err := s.run(ctx, opSearchClients, nil, nil, func(ctx context.Context) error {
		return s.store.View(ctx, func(tx domain.Transaction) error {
			found, err := tx.Search(query)
			if err != nil {
				return err
			}
			out = append(out, found...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListClients returns every stored client ordered by id.
func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	out := make([]domain.Client, 0)
	err := s.run(ctx, opListClients, nil, nil, func(ctx context.Context) error {
		return s.store.View(ctx, func(tx domain.Transaction) error {
			all, err := tx.List()
			if err != nil {
				return err
			}
			out = append(out, all...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// run wraps an operation with tracing, metrics, audit and logging. entityID is
// evaluated after fn so creates can report the assigned identifier; change is
// filled in by fn for mutating operations and may be nil.
func (s *Service) run(ctx context.Context, op string, entityID func() string, change *domain.Change, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	started := s.now()
	err := fn(ctx)
	duration := s.now().Sub(started)
	var id string
	if entityID != nil {
		id = entityID()
	}
	if cs, ok := span.(clientSpan); ok && id != "" {
		cs.SetClientID(id)
	}
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	reqID := RequestIDFrom(ctx)
	var snapshot domain.Change
	if change != nil {
		snapshot = *change
	}
	if err != nil {
		s.recordAuditError(ctx, op, id, err, snapshot, duration)
		if domain.IsValidation(err) || domain.IsNotFound(err) {
			s.logger.Info("client operation rejected", "operation", op, "id", id, "request_id", reqID, "error", err)
		} else {
			s.logger.Error("client operation failed", "operation", op, "id", id, "request_id", reqID, "error", err)
		}
		return err
	}
	s.recordAuditSuccess(ctx, op, id, snapshot, duration)
	s.logger.Debug("client operation completed", "operation", op, "id", id, "request_id", reqID, "duration", duration)
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func clientNotFound(id int64) error {
	return &domain.NotFoundError{Detail: fmt.Sprintf("Client id: %d", id)}
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
