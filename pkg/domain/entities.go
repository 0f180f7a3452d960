// Package domain defines the client record, the typed service errors, the
// rule evaluation primitives and the persistence contract used by clientcore.
package domain

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// EntityClient identifies a client record.
const EntityClient EntityType = "client"

// Client is the single record kind managed by the service. Optional and
// mandatory fields alike are pointers so that a JSON null or a missing key can
// be told apart from an explicit value.
type Client struct {
	ID           int64   `json:"client"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	IDNumber     *string `json:"idNumber"`
	MobileNumber *string `json:"mobileNumber"`
}

// Clone returns a deep copy so stores never share pointers with callers.
func (c Client) Clone() Client {
	return Client{
		ID:           c.ID,
		FirstName:    cloneString(c.FirstName),
		LastName:     cloneString(c.LastName),
		IDNumber:     cloneString(c.IDNumber),
		MobileNumber: cloneString(c.MobileNumber),
	}
}

// Value returns the value of the selected field, with ok=false when the field is null.
func (c Client) Value(field Field) (string, bool) {
	var p *string
	switch field {
	case FieldFirstName:
		p = c.FirstName
	case FieldLastName:
		p = c.LastName
	case FieldIDNumber:
		p = c.IDNumber
	case FieldMobileNumber:
		p = c.MobileNumber
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}

// Present reports whether p holds a non-empty value. Whitespace counts as a
// value.
func Present(p *string) bool {
	return p != nil && *p != ""
}

// Field selects a searchable client attribute.
type Field string

// Client fields addressable by stores.
const (
	FieldFirstName    Field = "firstName"
	FieldLastName     Field = "lastName"
	FieldIDNumber     Field = "idNumber"
	FieldMobileNumber Field = "mobileNumber"
)

// Column returns the storage column backing the field.
func (f Field) Column() string {
	switch f {
	case FieldFirstName:
		return "first_name"
	case FieldLastName:
		return "last_name"
	case FieldIDNumber:
		return "id_number"
	case FieldMobileNumber:
		return "mobile_number"
	default:
		return ""
	}
}

// ClientQuery carries the optional search criteria. A record matches when any
// non-nil criterion equals the corresponding field; nil criteria never match.
type ClientQuery struct {
	IDNumber     *string
	FirstName    *string
	MobileNumber *string
}

// Empty reports whether no criterion was supplied.
func (q ClientQuery) Empty() bool {
	return q.IDNumber == nil && q.FirstName == nil && q.MobileNumber == nil
}

// Matches applies the OR semantics of the query to a single client.
func (q ClientQuery) Matches(c Client) bool {
	return equalNonNil(q.IDNumber, c.IDNumber) ||
		equalNonNil(q.FirstName, c.FirstName) ||
		equalNonNil(q.MobileNumber, c.MobileNumber)
}

func equalNonNil(criterion, value *string) bool {
	return criterion != nil && value != nil && *criterion == *value
}

// Action indicates the type of modification performed.
type Action string

// Actions captured in audit entries.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
