// Package manifest records, per document, the ordered list of script files
// a run resolved.
package manifest

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/harrison/scriptindex/internal/filelock"
	"github.com/harrison/scriptindex/internal/models"
)

// Manifest is the serialized outcome of one run.
type Manifest struct {
	RunID       string     `yaml:"run_id" json:"run_id"`
	GeneratedAt time.Time  `yaml:"generated_at" json:"generated_at"`
	Documents   []Document `yaml:"documents" json:"documents"`
}

// Document lists the scripts of one HTML document in output order.
type Document struct {
	Document    string   `yaml:"document" json:"document"`
	State       string   `yaml:"state" json:"state"`
	Passthrough bool     `yaml:"passthrough,omitempty" json:"passthrough,omitempty"`
	Scripts     []string `yaml:"scripts" json:"scripts"`
	Unmatched   []string `yaml:"unmatched,omitempty" json:"unmatched,omitempty"`
	Error       string   `yaml:"error,omitempty" json:"error,omitempty"`
}

// New builds a Manifest from run results, keeping their order.
func New(results []*models.DocumentResult) *Manifest {
	m := &Manifest{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Documents:   make([]Document, 0, len(results)),
	}

	for _, r := range results {
		doc := Document{
			Document:    filepath.ToSlash(r.Relative),
			State:       r.State.String(),
			Passthrough: r.Passthrough,
			Scripts:     make([]string, 0, len(r.Resolved)),
		}
		for _, s := range r.Resolved {
			doc.Scripts = append(doc.Scripts, filepath.ToSlash(s))
		}
		if len(r.Unmatched) > 0 {
			doc.Unmatched = models.Sources(r.Unmatched)
		}
		if r.Err != nil {
			doc.Error = r.Err.Error()
		}
		m.Documents = append(m.Documents, doc)
	}
	return m
}

// Marshal encodes the manifest as JSON when path ends in .json and as YAML
// otherwise.
func (m *Manifest) Marshal(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return data, nil
}

// Write encodes the manifest and writes it to path under a file lock.
func (m *Manifest) Write(path string) error {
	data, err := m.Marshal(path)
	if err != nil {
		return err
	}
	if err := filelock.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}
