package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestNewStaticConnections(t *testing.T) {
	static := mustStatic(t,
		StaticConnectionDefinition{ID: "warehouse", Name: " Warehouse ", Driver: "athena", Data: map[string]any{"region": "us-east-1"}},
		StaticConnectionDefinition{ID: "replica", Name: "Replica", Driver: "postgres"},
	)

	records := static.Connections()
	require.Len(t, records, 2)
	require.Equal(t, 2, static.Len())

	first := records[0]
	require.Equal(t, "warehouse", first.ID)
	require.Equal(t, "Warehouse", first.Name)
	require.Equal(t, SourceStatic, first.Source)
	require.False(t, first.Deletable)
	require.False(t, first.Editable)
	fields, ok := first.Data.Structured()
	require.True(t, ok)
	require.Equal(t, "us-east-1", fields["region"])

	require.True(t, records[1].Data.IsZero())
}

func TestStaticConnectionsReturnCopies(t *testing.T) {
	static := mustStatic(t, StaticConnectionDefinition{
		ID:     "warehouse",
		Name:   "Warehouse",
		Driver: "athena",
		Data:   map[string]any{"region": "us-east-1"},
	})

	records := static.Connections()
	fields, _ := records[0].Data.Structured()
	fields["region"] = "tampered"
	records[0].Name = "tampered"

	again, ok := static.Lookup("warehouse")
	require.True(t, ok)
	require.Equal(t, "Warehouse", again.Name)
	fields, _ = again.Data.Structured()
	require.Equal(t, "us-east-1", fields["region"])
}

func TestStaticConnectionsDoNotAliasDefinitions(t *testing.T) {
	data := map[string]any{"host": "h"}
	static := mustStatic(t, StaticConnectionDefinition{ID: "a", Name: "A", Driver: "mysql", Data: data})

	data["host"] = "changed"

	record, _ := static.Lookup("a")
	fields, _ := record.Data.Structured()
	require.Equal(t, "h", fields["host"])
}

func TestNewStaticConnectionsAggregatesErrors(t *testing.T) {
	_, err := NewStaticConnections([]StaticConnectionDefinition{
		{ID: "", Name: "No id", Driver: "postgres"},
		{ID: "ok", Name: "", Driver: ""},
		{ID: "has space", Name: "Bad id", Driver: "postgres"},
		{ID: "dup", Name: "First", Driver: "postgres"},
		{ID: "dup", Name: "Second", Driver: "postgres"},
		{ID: "negative", Name: "Negative", Driver: "postgres", IdleTimeoutSeconds: -5},
	})
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 6)
	require.Contains(t, err.Error(), "id is required")
	require.Contains(t, err.Error(), "name is required")
	require.Contains(t, err.Error(), "driver is required")
	require.Contains(t, err.Error(), "unsupported characters")
	require.Contains(t, err.Error(), `duplicate id "dup"`)
	require.Contains(t, err.Error(), "idle timeout")
}

func TestNilStaticConnections(t *testing.T) {
	var static *StaticConnections

	require.Nil(t, static.Connections())
	require.Zero(t, static.Len())
	_, ok := static.Lookup("x")
	require.False(t, ok)
}
