package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Slugify Tests
// =============================================================================

func TestSlugify_Basic(t *testing.T) {
	result := Slugify("Notes Worker")
	assert.Equal(t, "notes-worker", result)
}

func TestSlugify_PreservesHyphens(t *testing.T) {
	result := Slugify("notes-monitoring")
	assert.Equal(t, "notes-monitoring", result)
}

func TestSlugify_TableDriven(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"basic", "Notes Worker", "notes-worker"},
		{"lowercase", "already lowercase", "already-lowercase"},
		{"uppercase", "UPPERCASE", "uppercase"},
		{"mixed", "MiXeD CaSe", "mixed-case"},
		{"numbers", "Stack123App", "stack123app"},
		{"special chars", "Notes! Stack?", "notes-stack"},
		{"hyphens preserved", "my-stack", "my-stack"},
		{"empty", "", ""},
		{"multiple spaces", "notes   worker", "notes---worker"},
		{"underscores removed", "notes_worker", "notesworker"},
		{"only special chars", "!@#$%^&*()", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slugify(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
