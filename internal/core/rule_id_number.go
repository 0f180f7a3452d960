package core

import (
	"clientcore/pkg/domain"
	"context"
)

const idNumberLength = 13

// NewIDNumberRule requires an ID number and checks its checksum.
func NewIDNumberRule() domain.Rule {
	return idNumberRule{}
}

type idNumberRule struct{}

func (idNumberRule) Name() string { return "id_number" }

func (r idNumberRule) Evaluate(_ context.Context, client domain.Client) (domain.Result, error) {
	if !domain.Present(client.IDNumber) {
		return blocking(r.Name(), mandatoryMessage(domain.FieldIDNumber)), nil
	}
	if !ValidIDNumber(*client.IDNumber) {
		return blocking(r.Name(), "Invalid idNumber: "+*client.IDNumber), nil
	}
	return domain.Result{}, nil
}

// ValidIDNumber applies the national ID checksum to the first 13 characters.
// Walking positions 12 down to 0, even positions add the digit and odd
// positions add the doubled digit, minus 9 when the digit is 5 or more. The
// number is valid when the sum is a multiple of 10. Shorter inputs and
// non-digit characters are invalid.
func ValidIDNumber(s string) bool {
	if len(s) < idNumberLength {
		return false
	}
	checksum := 0
	for i := idNumberLength - 1; i >= 0; i-- {
		ch := s[i]
		if ch < '0' || ch > '9' {
			return false
		}
		d := int(ch - '0')
		if i%2 == 0 {
			checksum += d
			continue
		}
		if d < 5 {
			checksum += d * 2
		} else {
			checksum += d*2 - 9
		}
	}
	return checksum%10 == 0
}
