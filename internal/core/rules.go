package core

import "clientcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in client checks,
// in the order their reasons are reported.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewMandatoryFieldRule(domain.FieldFirstName))
	engine.Register(NewMandatoryFieldRule(domain.FieldLastName))
	engine.Register(NewIDNumberRule())
	engine.Register(NewMobileNumberRule())
	return engine
}

func blocking(rule, message string) domain.Result {
	return domain.Result{Violations: []domain.Violation{{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  message,
	}}}
}

func mandatoryMessage(field domain.Field) string {
	return "Mandatory " + string(field) + " is not submitted"
}
