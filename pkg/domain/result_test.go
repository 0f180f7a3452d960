package domain

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn, Message: "soft"}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	if err := result.Err(); err != nil {
		t.Fatalf("expected nil error for warnings only, got %v", err)
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "hard"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if got := result.Blocking(); !reflect.DeepEqual(got, []string{"hard"}) {
		t.Fatalf("unexpected blocking messages: %v", got)
	}
	if !IsValidation(result.Err()) {
		t.Fatalf("expected validation error from blocking result")
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluateCollectsInOrder(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"first"})
	engine.Register(staticRule{"second"})
	res, err := engine.Evaluate(context.Background(), Client{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "first" || res.Violations[1].Rule != "second" {
		t.Fatalf("unexpected violations: %+v", res.Violations)
	}
	if len(engine.Rules()) != 2 {
		t.Fatalf("expected two registered rules")
	}
}

func TestRulesEngineEvaluatePropagatesError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	if _, err := engine.Evaluate(context.Background(), Client{}); err == nil {
		t.Fatalf("expected rule error")
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, Client) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityBlock, Message: r.name}}}, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, Client) (Result, error) {
	return Result{}, errors.New("boom")
}
