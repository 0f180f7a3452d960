package domain

import "encoding/json"

// ChangePayload holds a JSON snapshot of a client before or after a change.
// The zero value is undefined and marshals to null.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload wraps raw JSON, cloning the bytes.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	payload := ChangePayload{defined: true}
	if raw != nil {
		payload.raw = cloneRawMessage(raw)
	}
	return payload
}

// SnapshotClient captures c as a change payload.
func SnapshotClient(c Client) ChangePayload {
	raw, err := json.Marshal(c)
	if err != nil {
		return ChangePayload{}
	}
	return ChangePayload{defined: true, raw: raw}
}

// Defined reports whether the payload has been set.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// Raw returns a copy of the JSON bytes, or nil when undefined or empty.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	return cloneRawMessage(p.raw)
}

// Client decodes the snapshot. ok is false when the payload is undefined.
func (p ChangePayload) Client() (Client, bool, error) {
	if !p.defined || len(p.raw) == 0 {
		return Client{}, false, nil
	}
	var c Client
	if err := json.Unmarshal(p.raw, &c); err != nil {
		return Client{}, false, err
	}
	return c, true, nil
}

// MarshalJSON emits the snapshot verbatim, or null.
func (p ChangePayload) MarshalJSON() ([]byte, error) {
	if !p.defined || len(p.raw) == 0 {
		return []byte("null"), nil
	}
	return cloneRawMessage(p.raw), nil
}

// Change pairs the state of a client before and after a mutation. Creates
// leave Before undefined and deletes leave After undefined.
type Change struct {
	Before ChangePayload `json:"before"`
	After  ChangePayload `json:"after"`
}

func cloneRawMessage(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cloned := make(json.RawMessage, len(raw))
	copy(cloned, raw)
	return cloned
}
