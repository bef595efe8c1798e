package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/queryhub/internal/drivers"
	"github.com/charlesng35/queryhub/internal/models"
	apperrors "github.com/charlesng35/queryhub/pkg/errors"
	"github.com/charlesng35/queryhub/pkg/validator"
)

// ConnectionInput carries the fields accepted by managed create and update.
type ConnectionInput struct {
	ID                               string         `json:"id" validate:"omitempty,identifier,max=64"`
	Name                             string         `json:"name" validate:"required,max=255"`
	Description                      string         `json:"description" validate:"max=1024"`
	Driver                           string         `json:"driver" validate:"required,identifier,max=64"`
	MultiStatementTransactionEnabled bool           `json:"multiStatementTransactionEnabled"`
	IdleTimeoutSeconds               int            `json:"idleTimeoutSeconds" validate:"gte=0"`
	Data                             map[string]any `json:"data"`
}

// canonicalInputKeys are the top-level request keys that are not driver fields.
// Server-computed keys are listed so echoed responses do not leak into data.
var canonicalInputKeys = map[string]struct{}{
	"id":                               {},
	"name":                             {},
	"description":                      {},
	"driver":                           {},
	"multiStatementTransactionEnabled": {},
	"idleTimeoutSeconds":               {},
	"data":                             {},
	"createdAt":                        {},
	"updatedAt":                        {},
	"deletable":                        {},
	"editable":                         {},
	"maxRows":                          {},
	"supportsConnectionClient":         {},
	"isAsynchronous":                   {},
}

// ParseConnectionInput decodes a request body. When the body has a "data" object it
// is used as-is; otherwise every unrecognised top-level key becomes a data field.
func ParseConnectionInput(body []byte) (ConnectionInput, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ConnectionInput{}, apperrors.NewBadRequest("request body must be a JSON object")
	}

	var input ConnectionInput
	if err := json.Unmarshal(body, &input); err != nil {
		return ConnectionInput{}, apperrors.NewBadRequest(fmt.Sprintf("invalid connection: %v", err))
	}

	if _, hasData := raw["data"]; hasData && input.Data != nil {
		return input, nil
	}

	legacy := make(map[string]any)
	for key, value := range raw {
		if _, known := canonicalInputKeys[key]; known {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return ConnectionInput{}, apperrors.NewBadRequest(fmt.Sprintf("invalid field %q", key))
		}
		legacy[key] = decoded
	}
	if len(legacy) > 0 {
		input.Data = legacy
	}
	return input, nil
}

// ConnectionValidator checks managed input before it is persisted.
type ConnectionValidator interface {
	ValidateConnection(input ConnectionInput) error
}

// StructValidator validates ConnectionInput through its struct tags.
type StructValidator struct{}

// ValidateConnection implements ConnectionValidator.
func (StructValidator) ValidateConnection(input ConnectionInput) error {
	if err := validator.ValidateStruct(input); err != nil {
		return apperrors.NewBadRequest(validator.FormatError(err))
	}
	return nil
}

// Create persists a new connection. It is rejected with ErrMutationDisabled in read-only mode.
func (s *ConnectionService) Create(ctx context.Context, input ConnectionInput) (*DecoratedConnection, error) {
	ctx = ensureContext(ctx)
	if s.mode != ModeManaged {
		s.observe("create", apperrors.ErrMutationDisabled)
		return nil, apperrors.ErrMutationDisabled
	}

	input = normalizeInput(input)
	if err := s.validator.ValidateConnection(input); err != nil {
		s.observe("create", err)
		return nil, err
	}
	if input.ID != "" && s.IsStatic(input.ID) {
		s.observe("create", apperrors.ErrConnectionConflict)
		return nil, apperrors.ErrConnectionConflict
	}

	row, err := s.rowFromInput(input)
	if err != nil {
		s.observe("create", err)
		return nil, err
	}
	row.ID = input.ID

	if err := s.store.Create(ctx, row); err != nil {
		s.observe("create", err)
		if errors.Is(err, errDuplicateConnection) {
			return nil, apperrors.ErrConnectionConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("connection service: create connection: %w", err)
	}

	s.observe("create", nil)
	return s.FindByID(ctx, row.ID)
}

// Update overwrites a persisted connection. It is rejected with ErrMutationDisabled in read-only mode.
func (s *ConnectionService) Update(ctx context.Context, id string, input ConnectionInput) (*DecoratedConnection, error) {
	ctx = ensureContext(ctx)
	if s.mode != ModeManaged {
		s.observe("update", apperrors.ErrMutationDisabled)
		return nil, apperrors.ErrMutationDisabled
	}

	id = strings.TrimSpace(id)
	input = normalizeInput(input)
	input.ID = ""
	if err := s.validator.ValidateConnection(input); err != nil {
		s.observe("update", err)
		return nil, err
	}

	row, err := s.rowFromInput(input)
	if err != nil {
		s.observe("update", err)
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, row)
	if err != nil {
		s.observe("update", err)
		return nil, fmt.Errorf("connection service: update connection %s: %w", id, err)
	}
	if updated == 0 {
		if s.IsStatic(id) {
			s.observe("update", apperrors.ErrConnectionImmutable)
			return nil, apperrors.ErrConnectionImmutable
		}
		s.observe("update", apperrors.ErrNotFound)
		return nil, apperrors.ErrNotFound
	}

	s.observe("update", nil)
	return s.FindByID(ctx, id)
}

func (s *ConnectionService) rowFromInput(input ConnectionInput) (*models.Connection, error) {
	row := &models.Connection{
		Name:                             input.Name,
		Description:                      input.Description,
		Driver:                           input.Driver,
		MultiStatementTransactionEnabled: input.MultiStatementTransactionEnabled,
		IdleTimeoutSeconds:               input.IdleTimeoutSeconds,
	}
	if input.Data != nil {
		encoded, err := s.codec.Encode(input.Data)
		if err != nil {
			return nil, fmt.Errorf("connection service: encode payload: %w", err)
		}
		row.Data = encoded
	}
	return row, nil
}

func normalizeInput(input ConnectionInput) ConnectionInput {
	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Driver = string(drivers.Normalize(input.Driver))
	return input
}
