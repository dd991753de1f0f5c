package annotations

import (
	"errors"
	"strings"
	"testing"
)

func TestNewNoteIDValidatesInput(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		expected    NoteID
	}{
		{name: "plain id", input: "note-1", expected: "note-1"},
		{name: "trims whitespace", input: "  note-1  ", expected: "note-1"},
		{name: "empty", input: "", expectError: true},
		{name: "whitespace only", input: "   ", expectError: true},
		{name: "too long", input: strings.Repeat("x", 191), expectError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := NewNoteID(tc.input)
			if tc.expectError {
				if !errors.Is(err, ErrInvalidNoteID) {
					t.Fatalf("expected ErrInvalidNoteID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, id)
			}
		})
	}
}

func TestNewVideoIDValidatesInput(t *testing.T) {
	if _, err := NewVideoID(""); !errors.Is(err, ErrInvalidVideoID) {
		t.Fatalf("expected ErrInvalidVideoID for empty input, got %v", err)
	}
	id, err := NewVideoID("dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestNoteRecordDisplayTimeDerivesFromOffset(t *testing.T) {
	record := NoteRecord{ID: "n1", Time: 65.9, Content: "<p>hello</p>"}
	if actual := record.DisplayTime(); actual != "1:05" {
		t.Fatalf("expected display time 1:05, got %q", actual)
	}
}

func TestUUIDProviderIssuesDistinctValidIDs(t *testing.T) {
	provider := NewUUIDProvider()
	first, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct identifiers, both were %q", first)
	}
	if _, err := NewNoteID(first.String()); err != nil {
		t.Fatalf("generated id failed validation: %v", err)
	}
}
