package studio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseState(t *testing.T) {
	s, err := ParseState("viewer")
	require.NoError(t, err)
	assert.Equal(t, StateViewer, s)

	_, err = ParseState("limbo")
	assert.Error(t, err)
}

func TestCanNavigate(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateHome, StateLibrary, true},
		{StateHome, StateAbout, true},
		{StateHome, StateViewer, false},
		{StateLibrary, StateHome, true},
		{StateLibrary, StateDeveloper, false},
		{StateViewer, StateHistory, true},
		{StateHistory, StateViewer, true},
		{StateWriting, StateHome, true},
		{StateWriting, StateViewer, false},
		{StateOutlining, StateHome, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanNavigate(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
