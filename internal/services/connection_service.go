package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/queryhub/internal/drivers"
	"github.com/charlesng35/queryhub/internal/models"
	apperrors "github.com/charlesng35/queryhub/pkg/errors"
	"github.com/charlesng35/queryhub/pkg/logger"
	"github.com/charlesng35/queryhub/pkg/metrics"
)

// DefaultResultMaxRows caps query results when no limit is configured.
const DefaultResultMaxRows int64 = 10000

// ConnectionService merges persisted and static connections into one decorated view.
type ConnectionService struct {
	store     ConnectionStore
	static    StaticSource
	resolver  DriverResolver
	codec     PayloadCodec
	validator ConnectionValidator
	mode      OperatingMode
	maxRows   int64
	log       *zap.Logger
}

// ConnectionServiceOption customises a ConnectionService.
type ConnectionServiceOption func(*ConnectionService)

// WithLogger routes payload diagnostics to log.
func WithLogger(log *zap.Logger) ConnectionServiceOption {
	return func(s *ConnectionService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMode selects read-only or managed behaviour.
func WithMode(mode OperatingMode) ConnectionServiceOption {
	return func(s *ConnectionService) {
		s.mode = mode
	}
}

// WithCodec sets how persisted payloads are decoded and encoded.
func WithCodec(codec PayloadCodec) ConnectionServiceOption {
	return func(s *ConnectionService) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithValidator replaces the validator used by managed create and update.
func WithValidator(v ConnectionValidator) ConnectionServiceOption {
	return func(s *ConnectionService) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithDriverResolver replaces the builtin driver registry.
func WithDriverResolver(resolver DriverResolver) ConnectionServiceOption {
	return func(s *ConnectionService) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithMaxRows sets the result limit reported on every connection.
func WithMaxRows(maxRows int64) ConnectionServiceOption {
	return func(s *ConnectionService) {
		s.maxRows = maxRows
	}
}

// NewConnectionService constructs a ConnectionService. A nil static source means no static connections.
func NewConnectionService(store ConnectionStore, static StaticSource, opts ...ConnectionServiceOption) (*ConnectionService, error) {
	if store == nil {
		return nil, errors.New("connection service: store is required")
	}

	svc := &ConnectionService{
		store:     store,
		static:    static,
		resolver:  drivers.DefaultRegistry(),
		codec:     PlainCodec{},
		validator: StructValidator{},
		mode:      ModeReadOnly,
		maxRows:   DefaultResultMaxRows,
		log:       logger.WithModule("connections"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Mode reports the operating mode fixed at construction.
func (s *ConnectionService) Mode() OperatingMode {
	return s.mode
}

// ListAll returns persisted connections followed by static ones, stably sorted by
// case-insensitive name. Only a store failure aborts the listing.
func (s *ConnectionService) ListAll(ctx context.Context) ([]*DecoratedConnection, error) {
	rows, err := s.store.FindAll(ensureContext(ctx), models.ConnectionListColumns)
	if err != nil {
		s.observe("list", err)
		return nil, fmt.Errorf("connection service: list persisted connections: %w", err)
	}

	statics := s.staticRecords()
	out := make([]*DecoratedConnection, 0, len(rows)+len(statics))

	for i := range rows {
		record := s.Decipher(persistedRecord(&rows[i]))
		out = append(out, Decorate(&record, s.maxRows, s.resolver))
	}
	for i := range statics {
		out = append(out, Decorate(&statics[i], s.maxRows, s.resolver))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	metrics.ListedConnections.WithLabelValues(SourcePersisted.String()).Set(float64(len(rows)))
	metrics.ListedConnections.WithLabelValues(SourceStatic.String()).Set(float64(len(statics)))
	s.observe("list", nil)
	return out, nil
}

// FindByID returns the connection with id, preferring the persisted record over a
// static one sharing the id. It returns nil, nil when neither source knows id.
func (s *ConnectionService) FindByID(ctx context.Context, id string) (*DecoratedConnection, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	row, err := s.store.FindOne(ensureContext(ctx), id)
	if err != nil {
		s.observe("find", err)
		return nil, fmt.Errorf("connection service: find connection %s: %w", id, err)
	}
	if row != nil {
		record := s.Decipher(persistedRecord(row))
		s.observe("find", nil)
		return Decorate(&record, s.maxRows, s.resolver), nil
	}

	if record, ok := s.lookupStatic(id); ok {
		s.observe("find", nil)
		return Decorate(&record, s.maxRows, s.resolver), nil
	}

	s.observe("find", nil)
	return nil, nil
}

// Decipher normalizes a raw payload into a structured one. Failures leave the payload
// raw and are reported through the logger; they are never returned.
func (s *ConnectionService) Decipher(rec ConnectionRecord) ConnectionRecord {
	stored, ok := rec.Data.Raw()
	if !ok {
		return rec
	}

	decoded, err := s.codec.Decode(stored)
	if err != nil {
		reason := PayloadReason(err)
		metrics.PayloadFailures.WithLabelValues(reason).Inc()
		s.log.Warn("connection payload left undecoded",
			zap.String("connection_id", rec.ID),
			zap.String("reason", reason),
			zap.String("encoding", string(s.codec.Encoding())),
			zap.Error(err),
		)
		return rec
	}

	if decoded.LegacyPlain {
		s.log.Debug("accepted unencrypted connection payload",
			zap.String("connection_id", rec.ID),
		)
	}

	rec.Data = StructuredPayload(decoded.Fields)
	return rec
}

// RemoveByID deletes a persisted connection and reports how many rows were removed.
// Static connections are unaffected.
func (s *ConnectionService) RemoveByID(ctx context.Context, id string) (int64, error) {
	removed, err := s.store.Destroy(ensureContext(ctx), id)
	s.observe("remove", err)
	if err != nil {
		return 0, fmt.Errorf("connection service: remove connection %s: %w", id, err)
	}
	return removed, nil
}

// IsStatic reports whether id belongs to a configured connection.
func (s *ConnectionService) IsStatic(id string) bool {
	_, ok := s.lookupStatic(strings.TrimSpace(id))
	return ok
}

// DetectCollisions returns the sorted ids present in both sources.
func (s *ConnectionService) DetectCollisions(ctx context.Context) ([]string, error) {
	statics := s.staticRecords()
	if len(statics) == 0 {
		return nil, nil
	}

	rows, err := s.store.FindAll(ensureContext(ctx), []string{"id"})
	if err != nil {
		return nil, fmt.Errorf("connection service: detect collisions: %w", err)
	}

	persisted := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		persisted[row.ID] = struct{}{}
	}

	var collisions []string
	for _, record := range statics {
		if _, ok := persisted[record.ID]; ok {
			collisions = append(collisions, record.ID)
		}
	}
	sort.Strings(collisions)
	return collisions, nil
}

func (s *ConnectionService) staticRecords() []ConnectionRecord {
	if s.static == nil {
		return nil
	}
	return s.static.Connections()
}

type staticLookup interface {
	Lookup(id string) (ConnectionRecord, bool)
}

func (s *ConnectionService) lookupStatic(id string) (ConnectionRecord, bool) {
	if s.static == nil || id == "" {
		return ConnectionRecord{}, false
	}
	if lookup, ok := s.static.(staticLookup); ok {
		return lookup.Lookup(id)
	}
	for _, record := range s.static.Connections() {
		if record.ID == id {
			return record, true
		}
	}
	return ConnectionRecord{}, false
}

func (s *ConnectionService) observe(operation string, err error) {
	result := "ok"
	switch {
	case errors.Is(err, apperrors.ErrMutationDisabled):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	metrics.RegistryOperations.WithLabelValues(operation, result).Inc()
}

// persistedRecord maps a stored row onto the canonical record shape.
func persistedRecord(row *models.Connection) ConnectionRecord {
	record := ConnectionRecord{
		ID:                               row.ID,
		Name:                             row.Name,
		Description:                      row.Description,
		Driver:                           drivers.ID(row.Driver),
		MultiStatementTransactionEnabled: row.MultiStatementTransactionEnabled,
		IdleTimeoutSeconds:               row.IdleTimeoutSeconds,
		CreatedAt:                        timePointer(row.CreatedAt),
		UpdatedAt:                        timePointer(row.UpdatedAt),
		Deletable:                        true,
		Editable:                         true,
		Source:                           SourcePersisted,
	}
	if row.Data != "" {
		record.Data = RawPayload(row.Data)
	}
	return record
}

func timePointer(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}
