package models

import "fmt"

// Origin records where in the markup a script reference was found.
type Origin int

const (
	// OriginScriptTag is a live <script src="..."> start tag.
	OriginScriptTag Origin = iota
	// OriginConditionalComment is a <script src="..."> embedded in an
	// Internet Explorer conditional comment.
	OriginConditionalComment
)

// String returns the string representation of Origin.
func (o Origin) String() string {
	switch o {
	case OriginScriptTag:
		return "script"
	case OriginConditionalComment:
		return "conditional-comment"
	default:
		return "unknown"
	}
}

// ScriptReference is one script path or URL extracted from a document,
// exactly as it was written in the markup.
type ScriptReference struct {
	Src    string // Raw reference (attribute value, entity-decoded)
	Origin Origin // Where the reference was found
	Index  int    // Position in document order, starting at 0
}

// String formats the reference as "#<index> <src> (<origin>)".
func (r ScriptReference) String() string {
	return fmt.Sprintf("#%d %s (%s)", r.Index, r.Src, r.Origin)
}

// Sources returns the raw Src values of refs in order.
func Sources(refs []ScriptReference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Src
	}
	return out
}
