package domain

import "context"

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a write is rejected.
const (
	// SeverityBlock rejects the write.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but lets the write proceed.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns the messages of blocking violations in evaluation order.
func (r Result) Blocking() []string {
	var out []string
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v.Message)
		}
	}
	return out
}

// Err converts blocking violations into a ValidationError, or nil.
func (r Result) Err() error {
	if !r.HasBlocking() {
		return nil
	}
	return NewValidationError(r.Blocking()...)
}

// Rule inspects a candidate client before it reaches the store.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, client Client) (Result, error)
}

// RulesEngine orchestrates rule evaluation. Rules run in registration order
// and every violation is collected; nothing short-circuits.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules.
func (e *RulesEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, client Client) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, client)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
