// Package persistence defines the load/save contract for the annotation
// collection and its two backend implementations: a flat key-value store
// holding the whole collection under a single key, and a video-scoped store
// keeping one document per video with its metadata.
package persistence

import (
	"context"
	"errors"
)

var (
	// ErrBackendUnavailable indicates the backend handle was never opened or
	// has been closed.
	ErrBackendUnavailable = errors.New("persistence: backend unavailable")
)

// NoteState is the serialized form of one annotation.
type NoteState struct {
	Time    float64 `json:"time"`
	Content string  `json:"content"`
}

// VideoState groups the serialized notes of one video with its metadata.
type VideoState struct {
	Title string               `json:"title"`
	Notes map[string]NoteState `json:"notes"`
}

// StateBlob is the entire annotation collection keyed by video identifier.
// Backends always transmit the full blob; there are no partial writes.
type StateBlob map[string]VideoState

// Clone returns a deep copy so callers can hand a snapshot to a backend
// goroutine while the in-memory state keeps mutating.
func (b StateBlob) Clone() StateBlob {
	if b == nil {
		return nil
	}
	copied := make(StateBlob, len(b))
	for videoID, video := range b {
		notes := make(map[string]NoteState, len(video.Notes))
		for noteID, note := range video.Notes {
			notes[noteID] = note
		}
		copied[videoID] = VideoState{Title: video.Title, Notes: notes}
	}
	return copied
}

// Backend is the persistence collaborator. Load returns the last saved blob
// (empty, not an error, when nothing was ever saved) and Save replaces it.
type Backend interface {
	Load(ctx context.Context) (StateBlob, error)
	Save(ctx context.Context, state StateBlob) error
}
