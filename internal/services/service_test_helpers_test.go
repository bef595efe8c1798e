package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/charlesng35/queryhub/internal/database/testutil"
	"github.com/charlesng35/queryhub/internal/models"
)

// stubStore records calls and serves rows from memory.
type stubStore struct {
	mu      sync.Mutex
	rows    []models.Connection
	err     error
	calls   []string
	columns []string
}

func (s *stubStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubStore) FindAll(_ context.Context, columns []string) ([]models.Connection, error) {
	s.mu.Lock()
	s.calls = append(s.calls, "FindAll")
	s.columns = append([]string(nil), columns...)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Connection(nil), s.rows...), nil
}

func (s *stubStore) FindOne(_ context.Context, id string) (*models.Connection, error) {
	s.record("FindOne")
	if s.err != nil {
		return nil, s.err
	}
	for _, row := range s.rows {
		if row.ID == id {
			found := row
			return &found, nil
		}
	}
	return nil, nil
}

func (s *stubStore) Destroy(_ context.Context, id string) (int64, error) {
	s.record("Destroy")
	if s.err != nil {
		return 0, s.err
	}
	for i, row := range s.rows {
		if row.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubStore) Create(_ context.Context, row *models.Connection) error {
	s.record("Create")
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, *row)
	return nil
}

func (s *stubStore) Update(_ context.Context, id string, row *models.Connection) (int64, error) {
	s.record("Update")
	if s.err != nil {
		return 0, s.err
	}
	for i := range s.rows {
		if s.rows[i].ID == id {
			updated := *row
			updated.ID = id
			s.rows[i] = updated
			return 1, nil
		}
	}
	return 0, nil
}

// countingCipher reverses a fixed prefix so tests can see ciphertext without real crypto.
type countingCipher struct {
	decrypts int
	encrypts int
	fail     bool
}

const fakeSealPrefix = "sealed:"

func (c *countingCipher) Encrypt(plaintext []byte) (string, error) {
	c.encrypts++
	if c.fail {
		return "", errors.New("seal failed")
	}
	return fakeSealPrefix + string(plaintext), nil
}

func (c *countingCipher) Decrypt(ciphertext string) ([]byte, error) {
	c.decrypts++
	if c.fail || !strings.HasPrefix(ciphertext, fakeSealPrefix) {
		return nil, errors.New("cannot open payload")
	}
	return []byte(strings.TrimPrefix(ciphertext, fakeSealPrefix)), nil
}

func newObservedLogger(level zapcore.LevelEnabler) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func mustStatic(t *testing.T, defs ...StaticConnectionDefinition) *StaticConnections {
	t.Helper()
	static, err := NewStaticConnections(defs)
	require.NoError(t, err)
	return static
}

func newSQLiteService(t *testing.T, static StaticSource, opts ...ConnectionServiceOption) (*ConnectionService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewGormConnectionStore(db)
	require.NoError(t, err)

	svc, err := NewConnectionService(store, static, opts...)
	require.NoError(t, err)
	return svc, db
}

func names(items []*DecoratedConnection) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}
