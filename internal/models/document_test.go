package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStateString(t *testing.T) {
	tests := []struct {
		state DocumentState
		want  string
	}{
		{StateIdle, "idle"},
		{StateExtracting, "extracting"},
		{StateResolving, "resolving"},
		{StateComplete, "complete"},
		{StateFailed, "failed"},
		{DocumentState(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestDocumentStateTransitions(t *testing.T) {
	allowed := map[DocumentState][]DocumentState{
		StateIdle:       {StateExtracting, StateComplete},
		StateExtracting: {StateResolving, StateFailed},
		StateResolving:  {StateComplete, StateFailed},
	}
	all := []DocumentState{StateIdle, StateExtracting, StateResolving, StateComplete, StateFailed}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestDocumentStateTerminal(t *testing.T) {
	assert.True(t, StateComplete.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateExtracting.Terminal())
	assert.False(t, StateResolving.Terminal())
}

func TestDocumentResultSucceeded(t *testing.T) {
	var nilResult *DocumentResult
	assert.False(t, nilResult.Succeeded())
	assert.True(t, (&DocumentResult{State: StateComplete}).Succeeded())
	assert.False(t, (&DocumentResult{State: StateFailed}).Succeeded())
}

func TestScriptReferenceString(t *testing.T) {
	ref := ScriptReference{Src: "js/app.js", Origin: OriginConditionalComment, Index: 3}
	assert.Equal(t, "#3 js/app.js (conditional-comment)", ref.String())
	assert.Equal(t, "script", OriginScriptTag.String())
	assert.Equal(t, "unknown", Origin(9).String())
}

func TestSources(t *testing.T) {
	refs := []ScriptReference{{Src: "a.js"}, {Src: "b.js", Index: 1}}
	assert.Equal(t, []string{"a.js", "b.js"}, Sources(refs))
	assert.Empty(t, Sources(nil))
}
