package services

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/charlesng35/queryhub/internal/drivers"
)

// Source identifies where a connection record came from.
type Source uint8

const (
	// SourcePersisted marks user-managed records from the application datastore.
	SourcePersisted Source = iota + 1
	// SourceStatic marks immutable records declared through configuration.
	SourceStatic
)

func (s Source) String() string {
	switch s {
	case SourcePersisted:
		return "persisted"
	case SourceStatic:
		return "static"
	default:
		return "unknown"
	}
}

// ConnectionRecord is the canonical connection shape shared by both sources.
type ConnectionRecord struct {
	ID                               string     `json:"id"`
	Name                             string     `json:"name"`
	Description                      string     `json:"description"`
	Driver                           drivers.ID `json:"driver"`
	MultiStatementTransactionEnabled bool       `json:"multiStatementTransactionEnabled"`
	IdleTimeoutSeconds               int        `json:"idleTimeoutSeconds"`
	Data                             Payload    `json:"data,omitzero"`
	CreatedAt                        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt                        *time.Time `json:"updatedAt,omitempty"`
	Deletable                        bool       `json:"deletable"`
	Editable                         bool       `json:"editable"`
	Source                           Source     `json:"-"`
}

// Payload holds driver-specific connection data. It is either absent, a
// structured object, or a raw string that could not be turned into one.
type Payload struct {
	fields map[string]any
	raw    string
	state  payloadState
}

type payloadState uint8

const (
	payloadAbsent payloadState = iota
	payloadStructured
	payloadRaw
)

// StructuredPayload wraps a decoded object. A nil map yields an empty object.
func StructuredPayload(fields map[string]any) Payload {
	if fields == nil {
		fields = map[string]any{}
	}
	return Payload{fields: fields, state: payloadStructured}
}

// RawPayload wraps an undecoded payload string.
func RawPayload(raw string) Payload {
	return Payload{raw: raw, state: payloadRaw}
}

// IsZero reports whether the payload is absent.
func (p Payload) IsZero() bool { return p.state == payloadAbsent }

// IsRaw reports whether the payload is an undecoded string.
func (p Payload) IsRaw() bool { return p.state == payloadRaw }

// Structured returns the decoded object, if any.
func (p Payload) Structured() (map[string]any, bool) {
	if p.state != payloadStructured {
		return nil, false
	}
	return p.fields, true
}

// Raw returns the undecoded string, if any.
func (p Payload) Raw() (string, bool) {
	if p.state != payloadRaw {
		return "", false
	}
	return p.raw, true
}

// MarshalJSON renders structured payloads as objects and raw payloads as strings.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.state {
	case payloadStructured:
		return json.Marshal(p.fields)
	case payloadRaw:
		return json.Marshal(p.raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts an object, a string, or null.
func (p *Payload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*p = Payload{}
		return nil
	case trimmed[0] == '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*p = RawPayload(raw)
		return nil
	default:
		var fields map[string]any
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return err
		}
		*p = StructuredPayload(fields)
		return nil
	}
}
