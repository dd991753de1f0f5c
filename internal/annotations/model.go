// Package annotations owns the canonical note data model and the in-memory
// store that every rendered view is reconciled against.
package annotations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vidnotes/vidnotes/internal/timecode"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidNoteID indicates that a note identifier is empty or exceeds storage bounds.
	ErrInvalidNoteID = errors.New("annotations: invalid note id")
	// ErrInvalidVideoID indicates that a video identifier is empty or exceeds storage bounds.
	ErrInvalidVideoID = errors.New("annotations: invalid video id")
	// ErrInvalidTime indicates a negative playback offset.
	ErrInvalidTime = errors.New("annotations: invalid playback offset")
)

// NoteID represents a validated note identifier.
type NoteID string

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNoteID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidNoteID, maxIdentifierLength)
	}
	return NoteID(trimmed), nil
}

// String returns the underlying string identifier.
func (id NoteID) String() string {
	return string(id)
}

// VideoID represents a validated video identifier, stable per video rather
// than per page load.
type VideoID string

// NewVideoID validates raw input and returns a VideoID.
func NewVideoID(rawInput string) (VideoID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidVideoID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidVideoID, maxIdentifierLength)
	}
	return VideoID(trimmed), nil
}

// String returns the underlying string identifier.
func (id VideoID) String() string {
	return string(id)
}

// NoteRecord is one timestamped annotation. Time is the canonical playback
// offset in seconds; the display form is always derived from it.
type NoteRecord struct {
	ID      NoteID
	Time    float64
	Content string
}

// DisplayTime renders the canonical offset in the m:ss display form.
func (r NoteRecord) DisplayTime() string {
	return timecode.Encode(r.Time)
}

// VideoSet groups the notes of one video. A set exists only once at least
// one note has been saved for the video.
type VideoSet struct {
	VideoID VideoID
	Title   string
	Notes   map[NoteID]NoteRecord
}
