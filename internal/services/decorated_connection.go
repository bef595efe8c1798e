package services

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/charlesng35/queryhub/internal/drivers"
)

// DriverResolver maps a driver identifier onto its capabilities. Resolve must be total.
type DriverResolver interface {
	Resolve(id string) drivers.Resolution
}

// DecoratedConnection is a record enriched with capability and limit fields.
type DecoratedConnection struct {
	ConnectionRecord

	MaxRows                  int64
	SupportsConnectionClient bool
	IsAsynchronous           bool
	// Legacy holds the payload keys that older clients expect at the top level.
	Legacy map[string]any
}

// computedKeys are re-asserted after the legacy overlay so payload keys never mask them.
var computedKeys = []string{"maxRows", "supportsConnectionClient", "isAsynchronous"}

// sourceKeys describe where a record came from; payload keys never mask them either.
var sourceKeys = []string{"id", "deletable", "editable"}

// MarshalJSON writes canonical fields, overlays legacy payload keys, then re-applies
// source and computed fields.
func (d DecoratedConnection) MarshalJSON() ([]byte, error) {
	canonical, err := json.Marshal(d.ConnectionRecord)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(d.Legacy)+16)
	if err := json.Unmarshal(canonical, &out); err != nil {
		return nil, err
	}

	for key, value := range d.Legacy {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("legacy field %q: %w", key, err)
		}
		out[key] = encoded
	}

	reasserted := map[string]any{
		"id":                       d.ID,
		"deletable":                d.Deletable,
		"editable":                 d.Editable,
		"maxRows":                  d.MaxRows,
		"supportsConnectionClient": d.SupportsConnectionClient,
		"isAsynchronous":           d.IsAsynchronous,
	}
	for _, keys := range [][]string{sourceKeys, computedKeys} {
		for _, key := range keys {
			encoded, err := json.Marshal(reasserted[key])
			if err != nil {
				return nil, err
			}
			out[key] = encoded
		}
	}

	return json.Marshal(out)
}

// Decorate attaches computed fields to a deep copy of rec. It performs no I/O and
// never mutates its input. A nil record yields nil.
func Decorate(rec *ConnectionRecord, maxRows int64, resolver DriverResolver) *DecoratedConnection {
	if rec == nil {
		return nil
	}

	copied := cloneRecord(*rec)

	var resolved drivers.Resolution
	if resolver != nil {
		resolved = resolver.Resolve(string(copied.Driver))
	}

	decorated := &DecoratedConnection{
		ConnectionRecord:         copied,
		MaxRows:                  maxRows,
		SupportsConnectionClient: resolved.SupportsClient,
		IsAsynchronous:           resolved.Asynchronous,
	}

	if fields, ok := copied.Data.Structured(); ok {
		decorated.Legacy = cloneFields(fields)
		applyLegacyName(decorated)
	}

	return decorated
}

// applyLegacyName makes a payload "name" the effective name so sorting sees what
// clients see. A non-string name is dropped from the overlay.
func applyLegacyName(d *DecoratedConnection) {
	value, ok := d.Legacy["name"]
	if !ok {
		return
	}
	if name, isString := value.(string); isString {
		d.Name = name
		return
	}
	delete(d.Legacy, "name")
}

func cloneRecord(rec ConnectionRecord) ConnectionRecord {
	if fields, ok := rec.Data.Structured(); ok {
		rec.Data = StructuredPayload(cloneFields(fields))
	}
	if rec.CreatedAt != nil {
		created := *rec.CreatedAt
		rec.CreatedAt = &created
	}
	if rec.UpdatedAt != nil {
		updated := *rec.UpdatedAt
		rec.UpdatedAt = &updated
	}
	return rec
}

// cloneFields deep-copies a decoded payload. Values come from JSON or YAML decoding,
// so copystructure only fails on exotic types, in which case a shallow copy is kept.
func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	copied, err := copystructure.Copy(fields)
	if err == nil {
		if out, ok := copied.(map[string]any); ok {
			return out
		}
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = value
	}
	return out
}
