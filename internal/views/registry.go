// Package views tracks which rendered view instances currently display a
// given note. The registry is populated on bind/unbind so mutation fan-out
// never has to re-query a rendered tree for consistency.
package views

import (
	"sync"

	"github.com/vidnotes/vidnotes/internal/annotations"
)

// Kind identifies the surface a note is rendered in.
type Kind string

const (
	// KindEditorInline is an open editor inside the notes panel.
	KindEditorInline Kind = "editor-inline"
	// KindEditorTooltip is an editor anchored to a timeline marker.
	KindEditorTooltip Kind = "editor-tooltip"
	// KindCardReadOnly is the saved, read-only card in the notes panel.
	KindCardReadOnly Kind = "card-readonly"
)

// NoteView is the snapshot a binding renders: the display time derived from
// the canonical offset, plus the opaque formatted-text content.
type NoteView struct {
	NoteID      annotations.NoteID
	DisplayTime string
	Content     string
}

// Binding is one rendered occurrence of a note. Implementations wrap the
// host page element handle and must be pointer types, since the registry
// compares bindings by identity.
type Binding interface {
	NoteID() annotations.NoteID
	Kind() Kind
	// Apply re-renders the binding with the given snapshot.
	Apply(view NoteView)
	// Hide closes the binding without destroying it (tooltips).
	Hide()
	// Close tears the binding down permanently.
	Close()
}

// Factory materializes new bindings in the host page. Rendering itself is an
// external collaborator; the engine only decides when a surface must exist.
type Factory interface {
	NewEditor(view NoteView, kind Kind) Binding
	NewCard(view NoteView) Binding
}

// Registry maps note identifiers to their open bindings.
type Registry struct {
	mu     sync.Mutex
	byNote map[annotations.NoteID][]Binding
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byNote: make(map[annotations.NoteID][]Binding)}
}

// Bind registers a binding. Binding the same instance twice is a no-op.
func (r *Registry) Bind(binding Binding) {
	if binding == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	noteID := binding.NoteID()
	for _, existing := range r.byNote[noteID] {
		if existing == binding {
			return
		}
	}
	r.byNote[noteID] = append(r.byNote[noteID], binding)
}

// Unbind removes a binding without closing it.
func (r *Registry) Unbind(binding Binding) {
	if binding == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	noteID := binding.NoteID()
	bindings := r.byNote[noteID]
	for i, existing := range bindings {
		if existing == binding {
			r.byNote[noteID] = append(bindings[:i], bindings[i+1:]...)
			break
		}
	}
	if len(r.byNote[noteID]) == 0 {
		delete(r.byNote, noteID)
	}
}

// ForNote returns the open bindings for a note id.
func (r *Registry) ForNote(noteID annotations.NoteID) []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	bindings := r.byNote[noteID]
	out := make([]Binding, len(bindings))
	copy(out, bindings)
	return out
}

// Has reports whether a binding of the given kind is open for the note.
func (r *Registry) Has(noteID annotations.NoteID, kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, binding := range r.byNote[noteID] {
		if binding.Kind() == kind {
			return true
		}
	}
	return false
}

// CloseAll closes and unregisters every binding for a note.
func (r *Registry) CloseAll(noteID annotations.NoteID) {
	r.mu.Lock()
	bindings := r.byNote[noteID]
	delete(r.byNote, noteID)
	r.mu.Unlock()

	for _, binding := range bindings {
		binding.Close()
	}
}
