package scriptindex

import (
	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/vfile"
)

// Logger receives progress events from an Indexer. Implementations must be
// safe for use by one Indexer; the console and file loggers in
// internal/logger implement it.
type Logger interface {
	LogDocumentStart(doc *vfile.File)
	LogReferences(doc *vfile.File, refs []models.ScriptReference)
	LogNoMatch(doc *vfile.File, ref models.ScriptReference)
	LogDocumentComplete(result *models.DocumentResult)
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) LogDocumentStart(*vfile.File) {}
func (NopLogger) LogReferences(*vfile.File, []models.ScriptReference) {}
func (NopLogger) LogNoMatch(*vfile.File, models.ScriptReference) {}
func (NopLogger) LogDocumentComplete(*models.DocumentResult) {}

// MultiLogger fans every event out to several loggers, in order.
type MultiLogger []Logger

func (m MultiLogger) LogDocumentStart(doc *vfile.File) {
	for _, l := range m {
		l.LogDocumentStart(doc)
	}
}

func (m MultiLogger) LogReferences(doc *vfile.File, refs []models.ScriptReference) {
	for _, l := range m {
		l.LogReferences(doc, refs)
	}
}

func (m MultiLogger) LogNoMatch(doc *vfile.File, ref models.ScriptReference) {
	for _, l := range m {
		l.LogNoMatch(doc, ref)
	}
}

func (m MultiLogger) LogDocumentComplete(result *models.DocumentResult) {
	for _, l := range m {
		l.LogDocumentComplete(result)
	}
}
