package core

import (
	"clientcore/pkg/domain"
	"context"
)

// NewMandatoryFieldRule rejects clients whose field is null or empty.
func NewMandatoryFieldRule(field domain.Field) domain.Rule {
	return mandatoryFieldRule{field: field}
}

type mandatoryFieldRule struct {
	field domain.Field
}

func (r mandatoryFieldRule) Name() string { return "mandatory_" + r.field.Column() }

func (r mandatoryFieldRule) Evaluate(_ context.Context, client domain.Client) (domain.Result, error) {
	value, ok := client.Value(r.field)
	if ok && domain.Present(&value) {
		return domain.Result{}, nil
	}
	return blocking(r.Name(), mandatoryMessage(r.field)), nil
}
