package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/harrison/scriptindex/internal/models"
)

func sampleResults() []*models.DocumentResult {
	return []*models.DocumentResult{
		{
			Relative: "index.html",
			State:    models.StateComplete,
			Resolved: []string{"js/vendor/jquery.js", "js/main.js"},
			Unmatched: []models.ScriptReference{
				{Src: "https://cdn.example.com/analytics.js", Index: 2},
			},
		},
		{Relative: "empty.html", State: models.StateComplete, Passthrough: true},
		{Relative: "broken.html", State: models.StateFailed, Err: errors.New("read failed")},
	}
}

func TestNewKeepsOrder(t *testing.T) {
	m := New(sampleResults())

	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.False(t, m.GeneratedAt.IsZero())

	require.Len(t, m.Documents, 3)
	assert.Equal(t, "index.html", m.Documents[0].Document)
	assert.Equal(t, []string{"js/vendor/jquery.js", "js/main.js"}, m.Documents[0].Scripts)
	assert.Equal(t, []string{"https://cdn.example.com/analytics.js"}, m.Documents[0].Unmatched)
	assert.True(t, m.Documents[1].Passthrough)
	assert.NotNil(t, m.Documents[1].Scripts)
	assert.Equal(t, "failed", m.Documents[2].State)
	assert.Equal(t, "read failed", m.Documents[2].Error)
}

func TestNewRunIDsDiffer(t *testing.T) {
	assert.NotEqual(t, New(nil).RunID, New(nil).RunID)
}

func TestWriteRoundTrips(t *testing.T) {
	for _, name := range []string{"scripts.yaml", "scripts.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)
			m := New(sampleResults())

			require.NoError(t, m.Write(path))

			data, err := os.ReadFile(path)
			require.NoError(t, err)

			var loaded Manifest
			if strings.HasSuffix(name, ".json") {
				assert.True(t, strings.HasPrefix(string(data), "{"))
				require.NoError(t, json.Unmarshal(data, &loaded))
			} else {
				assert.Contains(t, string(data), "run_id: "+m.RunID)
				require.NoError(t, yaml.Unmarshal(data, &loaded))
			}

			assert.Equal(t, m.RunID, loaded.RunID)
			assert.True(t, m.GeneratedAt.Equal(loaded.GeneratedAt))
			assert.Equal(t, m.Documents, loaded.Documents)
		})
	}
}
