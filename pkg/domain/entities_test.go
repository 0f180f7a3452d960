package domain

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestClientCloneDoesNotShareFields(t *testing.T) {
	orig := Client{ID: 4, FirstName: StringPtr("Dewald"), MobileNumber: StringPtr("0821234567")}
	cp := orig.Clone()
	*cp.FirstName = "changed"
	if *orig.FirstName != "Dewald" {
		t.Fatalf("clone shares first name pointer")
	}
	if cp.LastName != nil || cp.IDNumber != nil {
		t.Fatalf("expected nil fields to stay nil")
	}
}

func TestClientJSONShape(t *testing.T) {
	c := Client{ID: 7, FirstName: StringPtr("Dewald"), LastName: StringPtr("Pretorius")}
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"client":7,"firstName":"Dewald","lastName":"Pretorius","idNumber":null,"mobileNumber":null}`
	if string(raw) != want {
		t.Fatalf("unexpected json:\nwant %s\ngot  %s", want, raw)
	}
}

func TestClientQueryMatchesAnyCriterion(t *testing.T) {
	c := Client{ID: 1, FirstName: StringPtr("Ann"), IDNumber: StringPtr("9607104800084"), MobileNumber: StringPtr("0821")}
	cases := []struct {
		name  string
		query ClientQuery
		want  bool
	}{
		{"empty", ClientQuery{}, false},
		{"first name", ClientQuery{FirstName: StringPtr("Ann")}, true},
		{"id number", ClientQuery{IDNumber: StringPtr("9607104800084")}, true},
		{"mobile", ClientQuery{MobileNumber: StringPtr("0821")}, true},
		{"one of many", ClientQuery{FirstName: StringPtr("Bob"), MobileNumber: StringPtr("0821")}, true},
		{"none", ClientQuery{FirstName: StringPtr("Bob"), IDNumber: StringPtr("x")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.query.Matches(c); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClientQueryNilFieldNeverMatches(t *testing.T) {
	c := Client{ID: 1}
	if (ClientQuery{MobileNumber: StringPtr("")}).Matches(c) {
		t.Fatalf("null mobile number must not match an empty criterion")
	}
}

func TestClientValueAndColumns(t *testing.T) {
	c := Client{IDNumber: StringPtr("1")}
	if v, ok := c.Value(FieldIDNumber); !ok || v != "1" {
		t.Fatalf("unexpected id number value %q %v", v, ok)
	}
	if _, ok := c.Value(FieldMobileNumber); ok {
		t.Fatalf("expected absent mobile number")
	}
	for _, f := range []Field{FieldFirstName, FieldLastName, FieldIDNumber, FieldMobileNumber} {
		if f.Column() == "" {
			t.Fatalf("missing column for %s", f)
		}
	}
	if Field("bogus").Column() != "" {
		t.Fatalf("expected empty column for unknown field")
	}
}

func TestErrorHelpers(t *testing.T) {
	nf := fmt.Errorf("wrap: %w", &NotFoundError{Detail: "Client id: 3"})
	if !IsNotFound(nf) || IsValidation(nf) {
		t.Fatalf("expected not found classification")
	}
	v := fmt.Errorf("wrap: %w", NewValidationError("a", "b"))
	if !IsValidation(v) {
		t.Fatalf("expected validation classification")
	}
	if got := Reasons(v); len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected reasons %v", got)
	}
	if Reasons(nf) != nil {
		t.Fatalf("expected nil reasons for not found")
	}
	if (&NotFoundError{Detail: "x"}).Error() != "x" {
		t.Fatalf("unexpected not found message")
	}
}
