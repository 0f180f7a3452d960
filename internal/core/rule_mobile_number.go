package core

import (
	"clientcore/pkg/domain"
	"context"
	"strconv"
)

// NewMobileNumberRule rejects a supplied mobile number that is not a base-10
// 64-bit integer. A null mobile number passes.
func NewMobileNumberRule() domain.Rule {
	return mobileNumberRule{}
}

type mobileNumberRule struct{}

func (mobileNumberRule) Name() string { return "mobile_number" }

func (r mobileNumberRule) Evaluate(_ context.Context, client domain.Client) (domain.Result, error) {
	if client.MobileNumber == nil || ValidMobileNumber(*client.MobileNumber) {
		return domain.Result{}, nil
	}
	return blocking(r.Name(), "Invalid mobileNumber: "+*client.MobileNumber), nil
}

// ValidMobileNumber reports whether s parses as a signed 64-bit decimal integer.
func ValidMobileNumber(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
