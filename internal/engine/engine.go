// Package engine is the consistency core: it applies note mutations to the
// store, persists them, and fans the resulting state out to every rendered
// view and to the marker layer, so no surface ever shows a stale copy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vidnotes/vidnotes/internal/annotations"
	"github.com/vidnotes/vidnotes/internal/markers"
	"github.com/vidnotes/vidnotes/internal/player"
	"github.com/vidnotes/vidnotes/internal/timecode"
	"github.com/vidnotes/vidnotes/internal/views"
)

var (
	// ErrEmptyContent rejects a save whose trimmed content is empty. The
	// store is left unchanged and no persistence is attempted.
	ErrEmptyContent = errors.New("engine: note content is empty")
	// ErrNoVideo means the host page has no identifiable video. Callers
	// treat it as a silent no-op, not a user-facing failure.
	ErrNoVideo = errors.New("engine: no video available")
	// ErrUnknownNote means neither a draft nor a stored record exists for
	// the identifier.
	ErrUnknownNote = errors.New("engine: unknown note")

	errMissingStore    = errors.New("annotation store is required")
	errMissingRegistry = errors.New("view registry is required")
	errMissingBinding  = errors.New("view binding is required")
	errMissingMarkers  = errors.New("marker layer is required")
	errMissingPlayer   = errors.New("player is required")
	errMissingFactory  = errors.New("view factory is required")

	noOpLogger = zap.NewNop()
)

// ServiceError carries a structured operation.reason code for reporting.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the structured error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opEngineNew = "engine.new"
	opCreate    = "engine.create"
	opSave      = "engine.save"
	opCancel    = "engine.cancel"
	opDelete    = "engine.delete"
	opEdit      = "engine.edit"
	opRefresh   = "engine.refresh"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Config carries the collaborators of an Engine.
type Config struct {
	Store    *annotations.Store
	Registry *views.Registry
	Markers  *markers.Layer
	Player   player.Player
	Views    views.Factory
	// IDs defaults to the UUIDv7 provider.
	IDs annotations.IDProvider
	// Scheduler defers render fan-out to a layout-settled point; it defaults
	// to immediate execution.
	Scheduler Scheduler
	Logger    *zap.Logger
}

// Engine drives the per-note Draft -> Persisted -> Deleted lifecycle. Within
// one mutation the store update happens before any view fan-out, and fan-out
// reads the store at flush time, so every binding for a note id observes the
// same final state even across a deferred render boundary.
type Engine struct {
	store     *annotations.Store
	registry  *views.Registry
	markers   *markers.Layer
	player    player.Player
	views     views.Factory
	ids       annotations.IDProvider
	scheduler Scheduler
	logger    *zap.Logger

	mu sync.Mutex
	// drafts maps unsaved notes to the playback offset captured when the
	// draft was opened. The store has no entry until the first save.
	drafts map[annotations.NoteID]float64
	// pending maps note ids needing re-render at the next flush to the
	// video each belongs to. Rapid mutations to one id coalesce into one
	// render.
	pending    map[annotations.NoteID]annotations.VideoID
	flushArmed bool
}

// New validates the configuration and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opEngineNew, "missing_store", errMissingStore)
	}
	if cfg.Registry == nil {
		return nil, newServiceError(opEngineNew, "missing_registry", errMissingRegistry)
	}
	if cfg.Markers == nil {
		return nil, newServiceError(opEngineNew, "missing_markers", errMissingMarkers)
	}
	if cfg.Player == nil {
		return nil, newServiceError(opEngineNew, "missing_player", errMissingPlayer)
	}
	if cfg.Views == nil {
		return nil, newServiceError(opEngineNew, "missing_view_factory", errMissingFactory)
	}

	ids := cfg.IDs
	if ids == nil {
		ids = annotations.NewUUIDProvider()
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = ImmediateScheduler()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Engine{
		store:     cfg.Store,
		registry:  cfg.Registry,
		markers:   cfg.Markers,
		player:    cfg.Player,
		views:     cfg.Views,
		ids:       ids,
		scheduler: scheduler,
		logger:    logger,
		drafts:    make(map[annotations.NoteID]float64),
		pending:   make(map[annotations.NoteID]annotations.VideoID),
	}, nil
}

// Create opens a fresh draft with an inline editor binding at the current
// playback offset. Without a video on the page this is a no-op returning
// ErrNoVideo, which callers swallow.
func (e *Engine) Create(ctx context.Context) (views.Binding, error) {
	return e.create(ctx, views.KindEditorInline)
}

// CreateAtMarker opens a fresh draft whose editor is the tooltip of a new
// timeline marker. The marker may therefore point at a draft; its tooltip is
// the draft's own editor binding.
func (e *Engine) CreateAtMarker(ctx context.Context) (views.Binding, error) {
	binding, err := e.create(ctx, views.KindEditorTooltip)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	offset := e.drafts[binding.NoteID()]
	e.mu.Unlock()

	duration, _ := e.durationOrZero()
	e.markers.Place(binding.NoteID(), offset, duration)
	return binding, nil
}

func (e *Engine) create(ctx context.Context, kind views.Kind) (views.Binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, newServiceError(opCreate, "context_done", err)
	}
	if _, ok := e.player.VideoID(); !ok {
		return nil, newServiceError(opCreate, "no_video", ErrNoVideo)
	}
	offset, ok := e.player.CurrentTime()
	if !ok {
		return nil, newServiceError(opCreate, "no_video", ErrNoVideo)
	}

	noteID, err := e.ids.NewID()
	if err != nil {
		e.logError(opCreate, "id_generation_failed", err)
		return nil, newServiceError(opCreate, "id_generation_failed", err)
	}

	e.mu.Lock()
	e.drafts[noteID] = offset
	e.mu.Unlock()

	binding := e.views.NewEditor(views.NoteView{
		NoteID:      noteID,
		DisplayTime: timecode.Encode(offset),
		Content:     "",
	}, kind)
	e.registry.Bind(binding)

	e.logger.Debug("draft opened",
		zap.String("note_id", noteID.String()),
		zap.Float64("time", offset))
	return binding, nil
}

// SaveResult reports a completed save: the stored record and the channel on
// which the asynchronous persist outcome arrives.
type SaveResult struct {
	Record  annotations.NoteRecord
	Persist <-chan annotations.PersistOutcome
}

// Save validates and applies a save from the given binding. The note
// transitions to Persisted regardless of whether the backend write succeeds;
// a failed persist is reported through the result, never rolled back. After
// the store update, the new state fans out to every binding sharing the id,
// the saving editor is replaced by a read-only card (a saving tooltip hides
// and a single card is ensured instead), and the marker is placed or moved.
func (e *Engine) Save(ctx context.Context, from views.Binding, content string) (SaveResult, error) {
	if from == nil {
		return SaveResult{}, newServiceError(opSave, "missing_binding", errMissingBinding)
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return SaveResult{}, newServiceError(opSave, "empty_content", ErrEmptyContent)
	}

	videoID, err := e.currentVideoID()
	if err != nil {
		return SaveResult{}, newServiceError(opSave, "no_video", err)
	}

	noteID := from.NoteID()
	offset, err := e.noteOffset(videoID, noteID)
	if err != nil {
		return SaveResult{}, newServiceError(opSave, "unknown_note", err)
	}

	record := e.store.Upsert(videoID, noteID, offset, trimmed, e.player.Title())
	persist := e.store.Persist(ctx)

	e.mu.Lock()
	delete(e.drafts, noteID)
	e.mu.Unlock()

	e.scheduleRender(videoID, noteID)

	switch from.Kind() {
	case views.KindEditorInline:
		card := e.views.NewCard(noteViewOf(record))
		e.registry.Bind(card)
		e.registry.Unbind(from)
		from.Close()
	case views.KindEditorTooltip:
		from.Hide()
		if !e.registry.Has(noteID, views.KindCardReadOnly) {
			card := e.views.NewCard(noteViewOf(record))
			e.registry.Bind(card)
		}
	}

	duration, _ := e.durationOrZero()
	e.markers.Reposition(noteID, record.Time, duration)

	e.logger.Debug("note saved",
		zap.String("video_id", videoID.String()),
		zap.String("note_id", noteID.String()),
		zap.Float64("time", record.Time))
	return SaveResult{Record: record, Persist: persist}, nil
}

// Cancel reverts or tears down an editor binding. With a persisted record
// the binding's content reverts to the last saved value; tooltip editors
// hide rather than close. A pure draft has nothing to revert to, so its
// binding tears down along with any marker that would be left orphaned.
func (e *Engine) Cancel(from views.Binding) error {
	if from == nil {
		return newServiceError(opCancel, "missing_binding", errMissingBinding)
	}

	noteID := from.NoteID()
	videoID, err := e.currentVideoID()
	if err == nil {
		if record, ok := e.store.Get(videoID, noteID); ok {
			from.Apply(noteViewOf(record))
			if from.Kind() == views.KindEditorTooltip {
				from.Hide()
			}
			return nil
		}
	}

	e.mu.Lock()
	delete(e.drafts, noteID)
	e.mu.Unlock()

	e.registry.Unbind(from)
	from.Close()
	if len(e.registry.ForNote(noteID)) == 0 {
		e.markers.Remove(noteID)
	}
	return nil
}

// DeleteResult reports a completed delete and its persist outcome channel.
type DeleteResult struct {
	Removed bool
	Persist <-chan annotations.PersistOutcome
}

// Delete removes a note from the store and tears down every binding and the
// marker for its id. Teardown is unconditional: deletion is UI-authoritative
// even when the backend write fails.
func (e *Engine) Delete(ctx context.Context, noteID annotations.NoteID) (DeleteResult, error) {
	videoID, err := e.currentVideoID()
	if err != nil {
		return DeleteResult{}, newServiceError(opDelete, "no_video", err)
	}

	removed := e.store.Remove(videoID, noteID)
	persist := e.store.Persist(ctx)

	e.mu.Lock()
	delete(e.drafts, noteID)
	delete(e.pending, noteID)
	e.mu.Unlock()

	e.registry.CloseAll(noteID)
	e.markers.Remove(noteID)

	e.logger.Debug("note deleted",
		zap.String("video_id", videoID.String()),
		zap.String("note_id", noteID.String()),
		zap.Bool("removed", removed))
	return DeleteResult{Removed: removed, Persist: persist}, nil
}

// Edit reopens a persisted note for editing. The editor is seeded from the
// store's current record, never from whatever the card happened to render,
// and the card it replaces is closed.
func (e *Engine) Edit(card views.Binding) (views.Binding, error) {
	if card == nil {
		return nil, newServiceError(opEdit, "missing_binding", errMissingBinding)
	}

	videoID, err := e.currentVideoID()
	if err != nil {
		return nil, newServiceError(opEdit, "no_video", err)
	}

	noteID := card.NoteID()
	record, ok := e.store.Get(videoID, noteID)
	if !ok {
		return nil, newServiceError(opEdit, "unknown_note", ErrUnknownNote)
	}

	editor := e.views.NewEditor(noteViewOf(record), views.KindEditorInline)
	e.registry.Bind(editor)
	e.registry.Unbind(card)
	card.Close()
	return editor, nil
}

// Refresh reloads the store from the backend and re-renders every open
// binding from the fresh state. Wired to backend change notifications.
func (e *Engine) Refresh(ctx context.Context) error {
	loadErr := e.store.Load(ctx)

	videoID, err := e.currentVideoID()
	if err == nil {
		for _, record := range e.store.NotesByTime(videoID) {
			e.scheduleRender(videoID, record.ID)
		}
	}

	if loadErr != nil {
		return newServiceError(opRefresh, "load_failed", loadErr)
	}
	return nil
}

// DurationKnown places every marker that was deferred while the video
// metadata had not loaded yet.
func (e *Engine) DurationKnown(duration float64) map[annotations.NoteID]float64 {
	return e.markers.Resolve(duration)
}

// scheduleRender queues fan-out for a note and arms one flush per batch of
// mutations. The flush reads the store at flush time, so coalesced renders
// always reflect the final state.
func (e *Engine) scheduleRender(videoID annotations.VideoID, noteID annotations.NoteID) {
	e.mu.Lock()
	e.pending[noteID] = videoID
	arm := !e.flushArmed
	e.flushArmed = true
	e.mu.Unlock()

	if !arm {
		return
	}
	e.scheduler.Schedule(e.flush)
}

func (e *Engine) flush() {
	e.mu.Lock()
	pending := e.pending
	e.pending = make(map[annotations.NoteID]annotations.VideoID)
	e.flushArmed = false
	e.mu.Unlock()

	for noteID, videoID := range pending {
		record, ok := e.store.Get(videoID, noteID)
		if !ok {
			// Deleted between scheduling and flush; Delete already tore the
			// bindings down.
			continue
		}
		view := noteViewOf(record)
		for _, binding := range e.registry.ForNote(noteID) {
			binding.Apply(view)
		}
	}
}

func (e *Engine) currentVideoID() (annotations.VideoID, error) {
	raw, ok := e.player.VideoID()
	if !ok {
		return "", ErrNoVideo
	}
	videoID, err := annotations.NewVideoID(raw)
	if err != nil {
		return "", err
	}
	return videoID, nil
}

// noteOffset resolves the playback offset a save applies to: the stored
// record's time for persisted notes, the captured offset for drafts.
func (e *Engine) noteOffset(videoID annotations.VideoID, noteID annotations.NoteID) (float64, error) {
	if record, ok := e.store.Get(videoID, noteID); ok {
		return record.Time, nil
	}
	e.mu.Lock()
	offset, ok := e.drafts[noteID]
	e.mu.Unlock()
	if !ok {
		return 0, ErrUnknownNote
	}
	return offset, nil
}

func (e *Engine) durationOrZero() (float64, bool) {
	duration, ok := e.player.Duration()
	if !ok {
		return 0, false
	}
	return duration, true
}

func (e *Engine) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	e.logger.Error("engine error", attrs...)
}

func noteViewOf(record annotations.NoteRecord) views.NoteView {
	return views.NoteView{
		NoteID:      record.ID,
		DisplayTime: record.DisplayTime(),
		Content:     record.Content,
	}
}
