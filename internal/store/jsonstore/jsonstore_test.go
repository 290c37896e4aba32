package jsonstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
)

func TestLoad_Missing(t *testing.T) {
	items, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestLoad_OlderTitleDoneShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"Buy milk","done":false},{"title":" Call mom ","done":true}]`), 0o644))

	items, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{
		{Body: "Buy milk", Status: model.StatusActive},
		{Body: "Call mom", Status: model.StatusDone},
	}, items)
}

func TestSaveThenLoad_KeepsBodyAndStatusOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	in := []model.Todo{
		{ID: "a", Body: "one", Status: model.StatusDone, UID: "u1", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Body: "two", Status: model.StatusActive, UID: "u1"},
	}
	require.NoError(t, Save(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"body":"one","status":"Done"},{"body":"two","status":"Active"}]`, string(raw))
	assert.NotContains(t, string(raw), `"uid"`)
	assert.NotContains(t, string(raw), `"id"`)

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{
		{Body: "one", Status: model.StatusDone},
		{Body: "two", Status: model.StatusActive},
	}, out)
}

func TestSave_EmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, nil))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestLoad_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   `{`,
		"empty body": `[{"body":"  "}]`,
		"bad status": `[{"body":"x","status":"Later"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
