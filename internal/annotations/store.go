package annotations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vidnotes/vidnotes/internal/persistence"
)

var (
	errMissingBackend = errors.New("persistence backend is required")
	noOpLogger        = zap.NewNop()
)

// StoreConfig carries the collaborators of a Store.
type StoreConfig struct {
	Backend persistence.Backend
	Logger  *zap.Logger
}

// Store is the single writable owner of note data, keyed by video. Views
// never hold authoritative copies; they are reconciled against this state
// after every mutation. Mutations apply in-memory immediately and are
// persisted asynchronously without rollback, so the in-memory state stays
// authoritative even across backend failures.
type Store struct {
	backend persistence.Backend
	logger  *zap.Logger

	mu      sync.Mutex
	byVideo map[VideoID]*VideoSet
	loaded  bool
	// queued holds writes issued before the initial load completes; they
	// replay once the backend state is in, so none are silently lost.
	queued []func()
}

// NewStore constructs a Store bound to the provided backend.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("annotations.store.new: %w", errMissingBackend)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store{
		backend: cfg.Backend,
		logger:  logger,
		byVideo: make(map[VideoID]*VideoSet),
	}, nil
}

// Load fetches the persisted collection and replaces the in-memory state.
// A backend failure degrades to an empty, usable store: the loaded gate
// still opens, queued writes still replay, and the failure is returned for
// warning-level reporting rather than blocking the UI.
func (s *Store) Load(ctx context.Context) error {
	state, err := s.backend.Load(ctx)

	s.mu.Lock()
	s.byVideo = make(map[VideoID]*VideoSet)
	if err == nil {
		for rawVideoID, video := range state {
			videoID, idErr := NewVideoID(rawVideoID)
			if idErr != nil {
				s.logger.Warn("skipping video with invalid identifier",
					zap.String("video_id", rawVideoID), zap.Error(idErr))
				continue
			}
			set := &VideoSet{VideoID: videoID, Title: video.Title, Notes: make(map[NoteID]NoteRecord, len(video.Notes))}
			for rawNoteID, note := range video.Notes {
				noteID, idErr := NewNoteID(rawNoteID)
				if idErr != nil {
					s.logger.Warn("skipping note with invalid identifier",
						zap.String("video_id", rawVideoID),
						zap.String("note_id", rawNoteID), zap.Error(idErr))
					continue
				}
				set.Notes[noteID] = NoteRecord{ID: noteID, Time: note.Time, Content: note.Content}
			}
			s.byVideo[videoID] = set
		}
	}
	s.loaded = true
	replay := s.queued
	s.queued = nil
	s.mu.Unlock()

	for _, apply := range replay {
		apply()
	}

	if err != nil {
		return fmt.Errorf("annotations.store.load: %w", err)
	}
	return nil
}

// Loaded reports whether the initial load has completed.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Upsert inserts or overwrites a note in-memory, creating the video's set
// lazily. It does not persist; callers follow up with Persist. Before the
// initial load completes the write is queued and replayed afterwards.
func (s *Store) Upsert(videoID VideoID, noteID NoteID, offsetSeconds float64, content string, title string) NoteRecord {
	record := NoteRecord{ID: noteID, Time: offsetSeconds, Content: content}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.queued = append(s.queued, func() {
			s.Upsert(videoID, noteID, offsetSeconds, content, title)
		})
		return record
	}

	set, ok := s.byVideo[videoID]
	if !ok {
		set = &VideoSet{VideoID: videoID, Title: title, Notes: make(map[NoteID]NoteRecord)}
		s.byVideo[videoID] = set
	}
	if set.Title == "" {
		set.Title = title
	}
	set.Notes[noteID] = record
	return record
}

// Remove deletes a note if present and reports whether a deletion occurred.
// Removing an absent note is a no-op, not an error.
func (s *Store) Remove(videoID VideoID, noteID NoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.queued = append(s.queued, func() { s.Remove(videoID, noteID) })
		return false
	}

	set, ok := s.byVideo[videoID]
	if !ok {
		return false
	}
	if _, ok := set.Notes[noteID]; !ok {
		return false
	}
	delete(set.Notes, noteID)
	return true
}

// Get looks a note up. Absence is a normal outcome callers use to tell new
// notes from existing ones.
func (s *Store) Get(videoID VideoID, noteID NoteID) (NoteRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byVideo[videoID]
	if !ok {
		return NoteRecord{}, false
	}
	record, ok := set.Notes[noteID]
	return record, ok
}

// Title returns the captured display title for a video, if any.
func (s *Store) Title(videoID VideoID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.byVideo[videoID]; ok {
		return set.Title
	}
	return ""
}

// NotesByTime returns a video's notes in display order.
func (s *Store) NotesByTime(videoID VideoID) []NoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byVideo[videoID]
	if !ok {
		return nil
	}
	records := make([]NoteRecord, 0, len(set.Notes))
	for _, record := range set.Notes {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Time == records[j].Time {
			return records[i].ID < records[j].ID
		}
		return records[i].Time < records[j].Time
	})
	return records
}

// Snapshot serializes the full in-memory collection.
func (s *Store) Snapshot() persistence.StateBlob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() persistence.StateBlob {
	state := persistence.StateBlob{}
	for videoID, set := range s.byVideo {
		notes := make(map[string]persistence.NoteState, len(set.Notes))
		for noteID, record := range set.Notes {
			notes[noteID.String()] = persistence.NoteState{Time: record.Time, Content: record.Content}
		}
		state[videoID.String()] = persistence.VideoState{Title: set.Title, Notes: notes}
	}
	return state
}

// PersistOutcome reports how an asynchronous persist concluded.
type PersistOutcome struct {
	Err error
}

// Persist hands the current full state to the backend without blocking the
// caller. Before the initial load completes the persist queues behind the
// queued writes: snapshotting the empty pre-load state would overwrite the
// backend's durable collection with nothing. The in-memory state is not
// rolled back on failure; the outcome is delivered on the returned channel
// so callers can report it. Overlapping persists are allowed: each carries
// the full state, so the last write wins at the backend.
func (s *Store) Persist(ctx context.Context) <-chan PersistOutcome {
	s.mu.Lock()
	if !s.loaded {
		outcome := make(chan PersistOutcome, 1)
		s.queued = append(s.queued, func() {
			deferred := s.Persist(ctx)
			go func() {
				outcome <- <-deferred
				close(outcome)
			}()
		})
		s.mu.Unlock()
		return outcome
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	outcome := make(chan PersistOutcome, 1)
	go func() {
		err := s.backend.Save(ctx, snapshot)
		if err != nil {
			s.logger.Warn("persist failed, in-memory state remains authoritative", zap.Error(err))
			err = fmt.Errorf("annotations.store.persist: %w", err)
		}
		outcome <- PersistOutcome{Err: err}
		close(outcome)
	}()
	return outcome
}
