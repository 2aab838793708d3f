package models

import "time"

// DocumentState is the processing state of a single HTML document.
type DocumentState int

const (
	// StateIdle means the document has not been looked at yet.
	StateIdle DocumentState = iota
	// StateExtracting means the markup is being scanned for references.
	StateExtracting
	// StateResolving means references are being matched on the filesystem.
	StateResolving
	// StateComplete means every resolved file has been emitted.
	StateComplete
	// StateFailed is terminal: a payload read or resolution error occurred.
	StateFailed
)

// String returns the string representation of DocumentState.
func (s DocumentState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateResolving:
		return "resolving"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s DocumentState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// CanTransition reports whether moving from s to next is a legal step.
// Idle may jump straight to Complete when the document has no payload.
func (s DocumentState) CanTransition(next DocumentState) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StateIdle:
		return next == StateExtracting || next == StateComplete
	case StateExtracting:
		return next == StateResolving || next == StateFailed
	case StateResolving:
		return next == StateComplete || next == StateFailed
	default:
		return false
	}
}

// DocumentResult summarises what happened to one document.
type DocumentResult struct {
	Path        string            // Absolute path of the document
	Relative    string            // Path relative to the document base
	State       DocumentState     // Final state reached
	Passthrough bool              // True when the document had no payload and was forwarded as-is
	References  []ScriptReference // Extracted references in document order
	Resolved    []string          // Emitted files, relative to the working directory, in output order
	Unmatched   []ScriptReference // References that matched no file
	Duration    time.Duration     // Time spent on the document
	Err         error             // Failure cause when State is StateFailed
}

// Succeeded reports whether the document reached StateComplete.
func (r *DocumentResult) Succeeded() bool {
	return r != nil && r.State == StateComplete
}
