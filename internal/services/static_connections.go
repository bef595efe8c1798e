package services

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/charlesng35/queryhub/internal/drivers"
	"github.com/charlesng35/queryhub/pkg/validator"
)

// StaticSource supplies the immutable connection records declared in configuration.
type StaticSource interface {
	Connections() []ConnectionRecord
}

// StaticConnectionDefinition declares one static connection.
type StaticConnectionDefinition struct {
	ID                               string         `json:"id"`
	Name                             string         `json:"name"`
	Description                      string         `json:"description"`
	Driver                           string         `json:"driver"`
	MultiStatementTransactionEnabled bool           `json:"multiStatementTransactionEnabled"`
	IdleTimeoutSeconds               int            `json:"idleTimeoutSeconds"`
	Data                             map[string]any `json:"data"`
}

// StaticConnections is an immutable snapshot of configured connections.
type StaticConnections struct {
	records []ConnectionRecord
	index   map[string]int
}

// NewStaticConnections validates definitions and freezes them into records.
// Every invalid definition is reported, not just the first.
func NewStaticConnections(definitions []StaticConnectionDefinition) (*StaticConnections, error) {
	static := &StaticConnections{
		records: make([]ConnectionRecord, 0, len(definitions)),
		index:   make(map[string]int, len(definitions)),
	}

	var errs error
	for position, def := range definitions {
		id := strings.TrimSpace(def.ID)
		if err := validateStaticDefinition(position, id, def); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, exists := static.index[id]; exists {
			errs = multierr.Append(errs, fmt.Errorf("static connection %d: duplicate id %q", position, id))
			continue
		}

		record := ConnectionRecord{
			ID:                               id,
			Name:                             strings.TrimSpace(def.Name),
			Description:                      def.Description,
			Driver:                           drivers.ID(strings.TrimSpace(def.Driver)),
			MultiStatementTransactionEnabled: def.MultiStatementTransactionEnabled,
			IdleTimeoutSeconds:               def.IdleTimeoutSeconds,
			Deletable:                        false,
			Editable:                         false,
			Source:                           SourceStatic,
		}
		if def.Data != nil {
			record.Data = StructuredPayload(cloneFields(def.Data))
		}

		static.index[id] = len(static.records)
		static.records = append(static.records, record)
	}

	if errs != nil {
		return nil, errs
	}
	return static, nil
}

func validateStaticDefinition(position int, id string, def StaticConnectionDefinition) error {
	var errs error
	switch {
	case id == "":
		errs = multierr.Append(errs, fmt.Errorf("static connection %d: id is required", position))
	case !validator.IsIdentifier(id):
		errs = multierr.Append(errs, fmt.Errorf("static connection %d: id %q contains unsupported characters", position, id))
	}
	if strings.TrimSpace(def.Name) == "" {
		errs = multierr.Append(errs, fmt.Errorf("static connection %d (%s): name is required", position, id))
	}
	if strings.TrimSpace(def.Driver) == "" {
		errs = multierr.Append(errs, fmt.Errorf("static connection %d (%s): driver is required", position, id))
	}
	if def.IdleTimeoutSeconds < 0 {
		errs = multierr.Append(errs, fmt.Errorf("static connection %d (%s): idle timeout must not be negative", position, id))
	}
	return errs
}

// Connections returns deep copies of every static record in declaration order.
func (s *StaticConnections) Connections() []ConnectionRecord {
	if s == nil {
		return nil
	}
	out := make([]ConnectionRecord, len(s.records))
	for i, record := range s.records {
		out[i] = cloneRecord(record)
	}
	return out
}

// Lookup returns a copy of the static record with id.
func (s *StaticConnections) Lookup(id string) (ConnectionRecord, bool) {
	if s == nil {
		return ConnectionRecord{}, false
	}
	position, ok := s.index[id]
	if !ok {
		return ConnectionRecord{}, false
	}
	return cloneRecord(s.records[position]), true
}

// Len reports the number of static connections.
func (s *StaticConnections) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}
