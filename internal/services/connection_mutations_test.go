package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/queryhub/internal/models"
	apperrors "github.com/charlesng35/queryhub/pkg/errors"
)

func TestParseConnectionInputSplitsLegacyFields(t *testing.T) {
	input, err := ParseConnectionInput([]byte(`{
		"name": "Reporting",
		"driver": "postgres",
		"idleTimeoutSeconds": 30,
		"host": "db.internal",
		"port": 5432,
		"maxRows": 10,
		"deletable": true
	}`))
	require.NoError(t, err)

	require.Equal(t, "Reporting", input.Name)
	require.Equal(t, 30, input.IdleTimeoutSeconds)
	require.Equal(t, map[string]any{"host": "db.internal", "port": float64(5432)}, input.Data)
}

func TestParseConnectionInputPrefersData(t *testing.T) {
	input, err := ParseConnectionInput([]byte(`{
		"name": "Reporting",
		"driver": "postgres",
		"host": "ignored",
		"data": {"host": "kept"}
	}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"host": "kept"}, input.Data)
}

func TestParseConnectionInputWithoutDriverFields(t *testing.T) {
	input, err := ParseConnectionInput([]byte(`{"name":"n","driver":"sqlite"}`))
	require.NoError(t, err)
	require.Nil(t, input.Data)
}

func TestParseConnectionInputRejectsNonObjects(t *testing.T) {
	for _, body := range []string{`[]`, `"x"`, `{"name": 5}`, `not json`} {
		_, err := ParseConnectionInput([]byte(body))
		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr), body)
		require.Equal(t, 400, appErr.StatusCode, body)
	}
}

func TestStructValidator(t *testing.T) {
	v := StructValidator{}

	require.NoError(t, v.ValidateConnection(ConnectionInput{Name: "n", Driver: "postgres"}))
	require.Error(t, v.ValidateConnection(ConnectionInput{Driver: "postgres"}))
	require.Error(t, v.ValidateConnection(ConnectionInput{Name: "n"}))
	require.Error(t, v.ValidateConnection(ConnectionInput{Name: "n", Driver: "postgres", IdleTimeoutSeconds: -1}))
	require.Error(t, v.ValidateConnection(ConnectionInput{ID: "bad id", Name: "n", Driver: "postgres"}))
}

func TestManagedCreateEncryptsPayload(t *testing.T) {
	cipher := &countingCipher{}
	codec, err := NewPayloadCodec(EncodingEncrypted, cipher)
	require.NoError(t, err)
	svc, db := newSQLiteService(t, nil, WithMode(ModeManaged), WithCodec(codec))

	created, err := svc.Create(context.Background(), ConnectionInput{
		Name:   "  Analytics ",
		Driver: "PostgreSQL",
		Data:   map[string]any{"host": "h", "password": "pw"},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Analytics", created.Name)
	require.Equal(t, "postgresql", string(created.Driver))
	require.True(t, created.SupportsConnectionClient)
	require.Equal(t, "pw", created.Legacy["password"])

	var row models.Connection
	require.NoError(t, db.Take(&row, "id = ?", created.ID).Error)
	require.True(t, strings.HasPrefix(row.Data, fakeSealPrefix))
	require.Equal(t, 1, cipher.encrypts)
}

func TestManagedCreateConflicts(t *testing.T) {
	static := mustStatic(t, StaticConnectionDefinition{ID: "configured", Name: "C", Driver: "postgres"})
	svc, _ := newSQLiteService(t, static, WithMode(ModeManaged))

	_, err := svc.Create(context.Background(), ConnectionInput{ID: "configured", Name: "n", Driver: "postgres"})
	require.ErrorIs(t, err, apperrors.ErrConnectionConflict)

	_, err = svc.Create(context.Background(), ConnectionInput{ID: "mine", Name: "n", Driver: "postgres"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), ConnectionInput{ID: "mine", Name: "again", Driver: "postgres"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrConnectionConflict.Code, appErr.Code)
}

func TestManagedCreateValidationFailure(t *testing.T) {
	store := &stubStore{}
	svc, err := NewConnectionService(store, nil, WithMode(ModeManaged))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), ConnectionInput{Driver: "postgres"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, 400, appErr.StatusCode)
	require.Empty(t, store.calls)
}

type rejectAll struct{}

func (rejectAll) ValidateConnection(ConnectionInput) error {
	return apperrors.NewBadRequest("driver fields rejected")
}

func TestManagedCreateUsesInjectedValidator(t *testing.T) {
	svc, err := NewConnectionService(&stubStore{}, nil, WithMode(ModeManaged), WithValidator(rejectAll{}))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), ConnectionInput{Name: "n", Driver: "postgres"})
	require.EqualError(t, err, "driver fields rejected")
}

func TestManagedUpdate(t *testing.T) {
	static := mustStatic(t, StaticConnectionDefinition{ID: "configured", Name: "C", Driver: "postgres"})
	svc, _ := newSQLiteService(t, static, WithMode(ModeManaged))

	created, err := svc.Create(context.Background(), ConnectionInput{
		Name:   "Before",
		Driver: "mysql",
		Data:   map[string]any{"host": "old"},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, ConnectionInput{
		ID:                               "ignored",
		Name:                             "After",
		Driver:                           "trino",
		MultiStatementTransactionEnabled: true,
		Data:                             map[string]any{"host": "new"},
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "After", updated.Name)
	require.True(t, updated.IsAsynchronous)
	require.True(t, updated.MultiStatementTransactionEnabled)
	require.Equal(t, "new", updated.Legacy["host"])

	_, err = svc.Update(context.Background(), "missing", ConnectionInput{Name: "n", Driver: "mysql"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Update(context.Background(), "configured", ConnectionInput{Name: "n", Driver: "mysql"})
	require.ErrorIs(t, err, apperrors.ErrConnectionImmutable)
}

func TestManagedUpdatePropagatesStoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	svc, err := NewConnectionService(&stubStore{err: boom}, nil, WithMode(ModeManaged))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "x", ConnectionInput{Name: "n", Driver: "mysql"})
	require.ErrorIs(t, err, boom)
}

func TestParseOperatingMode(t *testing.T) {
	for input, want := range map[string]OperatingMode{
		"":          ModeReadOnly,
		"read_only": ModeReadOnly,
		"read-only": ModeReadOnly,
		"ReadOnly":  ModeReadOnly,
		"managed":   ModeManaged,
	} {
		got, err := ParseOperatingMode(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParseOperatingMode("chaos")
	require.Error(t, err)
	require.Equal(t, "managed", ModeManaged.String())
}
