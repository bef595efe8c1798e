package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/queryhub/internal/drivers"
)

func TestDecorateNilReturnsNil(t *testing.T) {
	require.Nil(t, Decorate(nil, 100, drivers.NewBuiltinRegistry()))
}

func TestDecorateComputedFields(t *testing.T) {
	registry := drivers.NewBuiltinRegistry()

	cases := []struct {
		driver       drivers.ID
		client       bool
		asynchronous bool
	}{
		{driver: drivers.Postgres, client: true},
		{driver: "PostgreSQL", client: true},
		{driver: drivers.Trino, asynchronous: true},
		{driver: drivers.ClickHouse},
		{driver: "unheard-of"},
		{driver: ""},
	}

	for _, tc := range cases {
		t.Run(string(tc.driver), func(t *testing.T) {
			rec := &ConnectionRecord{ID: "c1", Name: "c1", Driver: tc.driver}
			decorated := Decorate(rec, 2500, registry)

			require.NotNil(t, decorated)
			require.Equal(t, int64(2500), decorated.MaxRows)
			require.Equal(t, tc.client, decorated.SupportsConnectionClient)
			require.Equal(t, tc.asynchronous, decorated.IsAsynchronous)
		})
	}
}

func TestDecorateDoesNotMutateInput(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &ConnectionRecord{
		ID:        "c1",
		Name:      "Primary",
		Driver:    drivers.Postgres,
		CreatedAt: &created,
		Data: StructuredPayload(map[string]any{
			"host":    "db.internal",
			"options": map[string]any{"ssl": true},
		}),
	}
	before := cloneRecord(*rec)

	decorated := Decorate(rec, 10, drivers.NewBuiltinRegistry())

	fields, ok := decorated.Data.Structured()
	require.True(t, ok)
	fields["host"] = "changed"
	fields["options"].(map[string]any)["ssl"] = false
	decorated.Legacy["port"] = 1
	*decorated.CreatedAt = created.Add(time.Hour)

	original, _ := rec.Data.Structured()
	expected, _ := before.Data.Structured()
	if diff := cmp.Diff(expected, original); diff != "" {
		t.Fatalf("input payload mutated (-want +got):\n%s", diff)
	}
	require.Equal(t, created, *rec.CreatedAt)
}

func TestDecorateLegacyOverlay(t *testing.T) {
	rec := &ConnectionRecord{
		ID:     "c1",
		Name:   "Canonical",
		Driver: drivers.Postgres,
		Data: StructuredPayload(map[string]any{
			"host":                     "h",
			"name":                     "from-data",
			"maxRows":                  1,
			"supportsConnectionClient": false,
			"isAsynchronous":           true,
		}),
	}

	payload, err := json.Marshal(Decorate(rec, 500, drivers.NewBuiltinRegistry()))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))

	require.Equal(t, "h", out["host"])
	require.Equal(t, "from-data", out["name"], "payload keys overwrite canonical fields")
	require.Equal(t, float64(500), out["maxRows"])
	require.Equal(t, true, out["supportsConnectionClient"])
	require.Equal(t, false, out["isAsynchronous"])
	require.Equal(t, "h", out["data"].(map[string]any)["host"])
}

func TestDecoratedJSONWithoutPayload(t *testing.T) {
	rec := &ConnectionRecord{ID: "s1", Name: "Static", Driver: "unknown"}

	payload, err := json.Marshal(Decorate(rec, 100, drivers.NewBuiltinRegistry()))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))

	require.NotContains(t, out, "data")
	require.Equal(t, false, out["deletable"])
	require.Equal(t, false, out["supportsConnectionClient"])
	require.Equal(t, false, out["isAsynchronous"])
	require.Equal(t, float64(100), out["maxRows"])
}

func TestDecoratedJSONRawPayloadHasNoOverlay(t *testing.T) {
	rec := &ConnectionRecord{ID: "p1", Name: "Broken", Driver: drivers.MySQL, Data: RawPayload("not-json")}

	decorated := Decorate(rec, 1, drivers.NewBuiltinRegistry())
	require.Nil(t, decorated.Legacy)

	payload, err := json.Marshal(decorated)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Equal(t, "not-json", out["data"])
}

func TestDecorateWithNilResolver(t *testing.T) {
	decorated := Decorate(&ConnectionRecord{ID: "x", Driver: drivers.Postgres}, 7, nil)

	require.False(t, decorated.SupportsConnectionClient)
	require.False(t, decorated.IsAsynchronous)
	require.Equal(t, int64(7), decorated.MaxRows)
}

func TestDecorateEffectiveNameFromPayload(t *testing.T) {
	rec := &ConnectionRecord{
		ID:   "c1",
		Name: "Zulu",
		Data: StructuredPayload(map[string]any{"name": "Aardvark"}),
	}

	decorated := Decorate(rec, 1, nil)
	require.Equal(t, "Aardvark", decorated.Name)
	require.Equal(t, "Zulu", rec.Name)

	numeric := Decorate(&ConnectionRecord{
		ID:   "c2",
		Name: "Kept",
		Data: StructuredPayload(map[string]any{"name": 42}),
	}, 1, nil)
	require.Equal(t, "Kept", numeric.Name)

	payload, err := json.Marshal(numeric)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Equal(t, "Kept", out["name"])
}
