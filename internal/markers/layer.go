// Package markers maintains the timeline marker for each note: a normalized
// position on the progress track, plus the hover/click visibility machinery
// of the marker's tooltip.
package markers

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vidnotes/vidnotes/internal/annotations"
)

// Layer owns the note id to normalized position mapping. Exactly one marker
// exists per persisted note; placement is deferred while the video duration
// is still unknown instead of falling back to position zero.
type Layer struct {
	logger *zap.Logger

	mu        sync.Mutex
	positions map[annotations.NoteID]float64
	// deferred holds offsets awaiting a known duration, keyed by note id.
	deferred map[annotations.NoteID]float64
}

// NewLayer returns an empty marker layer.
func NewLayer(logger *zap.Logger) *Layer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Layer{
		logger:    logger,
		positions: make(map[annotations.NoteID]float64),
		deferred:  make(map[annotations.NoteID]float64),
	}
}

// Place computes and records the marker position for a note. When the
// duration is not yet a valid positive number the placement is deferred
// until Resolve supplies one; ok is false in that case.
func (l *Layer) Place(noteID annotations.NoteID, offsetSeconds, duration float64) (position float64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if duration <= 0 {
		l.deferred[noteID] = offsetSeconds
		l.logger.Debug("marker placement deferred until duration is known",
			zap.String("note_id", noteID.String()))
		return 0, false
	}

	position = normalized(offsetSeconds, duration)
	l.positions[noteID] = position
	delete(l.deferred, noteID)
	return position, true
}

// Reposition recomputes an existing marker's position. It shares Place's
// semantics and is idempotent.
func (l *Layer) Reposition(noteID annotations.NoteID, offsetSeconds, duration float64) (float64, bool) {
	return l.Place(noteID, offsetSeconds, duration)
}

// Resolve places every deferred marker now that the duration is known and
// returns the newly placed positions.
func (l *Layer) Resolve(duration float64) map[annotations.NoteID]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if duration <= 0 {
		return nil
	}

	placed := make(map[annotations.NoteID]float64, len(l.deferred))
	for noteID, offsetSeconds := range l.deferred {
		position := normalized(offsetSeconds, duration)
		l.positions[noteID] = position
		placed[noteID] = position
		delete(l.deferred, noteID)
	}
	return placed
}

// Remove drops the marker for a note, placed or deferred.
func (l *Layer) Remove(noteID annotations.NoteID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.positions, noteID)
	delete(l.deferred, noteID)
}

// Position returns the recorded normalized position for a note.
func (l *Layer) Position(noteID annotations.NoteID) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	position, ok := l.positions[noteID]
	return position, ok
}

// Has reports whether a marker exists for the note, placed or deferred.
func (l *Layer) Has(noteID annotations.NoteID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.positions[noteID]; ok {
		return true
	}
	_, ok := l.deferred[noteID]
	return ok
}

func normalized(offsetSeconds, duration float64) float64 {
	position := offsetSeconds / duration
	if position < 0 {
		return 0
	}
	if position > 1 {
		return 1
	}
	return position
}

// AnchorOffset computes the horizontal tooltip offset for a marker: centered
// on the marker, clamped so the tooltip box stays within the track. Layout
// may change between shows, so this is recomputed on every show.
func AnchorOffset(markerLeft, markerWidth, trackWidth, tooltipWidth float64) float64 {
	center := markerLeft + markerWidth/2
	left := center - tooltipWidth/2
	if left < 0 {
		left = 0
	}
	if limit := trackWidth - tooltipWidth; left > limit {
		left = limit
	}
	if left < 0 {
		left = 0
	}
	return left
}
