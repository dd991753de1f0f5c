package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const videoFileSuffix = ".json"

// videoDocument is the on-disk layout of one video's annotations. The video
// identifier is kept inside the document so a sanitized filename never has
// to round-trip back into an identifier.
type videoDocument struct {
	VideoID   string               `json:"videoId"`
	Title     string               `json:"title"`
	Notes     map[string]NoteState `json:"notes"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// VideoScopedBackend persists one JSON document per video under a data
// directory. External edits to the directory can be observed through Watch.
type VideoScopedBackend struct {
	dir    string
	logger *zap.Logger

	mu sync.Mutex
	// selfWriteUntil suppresses watcher events caused by our own saves.
	selfWriteUntil time.Time
}

// OpenVideoScoped prepares the data directory for per-video documents.
func OpenVideoScoped(dir string, logger *zap.Logger) (*VideoScopedBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("notes directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes directory: %w", err)
	}

	logger.Info("video-scoped backend initialized", zap.String("dir", dir))

	return &VideoScopedBackend{dir: dir, logger: logger}, nil
}

// Load reads every video document in the directory into one blob. Documents
// that fail to parse are skipped with a warning so one corrupted file does
// not take down the whole collection.
func (b *VideoScopedBackend) Load(ctx context.Context) (StateBlob, error) {
	if b == nil {
		return nil, ErrBackendUnavailable
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read notes directory: %w", err)
	}

	state := StateBlob{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), videoFileSuffix) {
			continue
		}

		path := filepath.Join(b.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("skipping unreadable video document",
				zap.String("path", path), zap.Error(err))
			continue
		}

		var doc videoDocument
		if err := json.Unmarshal(raw, &doc); err != nil || doc.VideoID == "" {
			b.logger.Warn("skipping malformed video document",
				zap.String("path", path), zap.Error(err))
			continue
		}

		notes := doc.Notes
		if notes == nil {
			notes = map[string]NoteState{}
		}
		state[doc.VideoID] = VideoState{Title: doc.Title, Notes: notes}
	}

	return state, nil
}

// Save writes one document per video and removes documents for videos no
// longer present, so the directory always mirrors the full blob.
func (b *VideoScopedBackend) Save(ctx context.Context, state StateBlob) error {
	if b == nil {
		return ErrBackendUnavailable
	}

	b.mu.Lock()
	b.selfWriteUntil = time.Now().Add(time.Second)
	b.mu.Unlock()

	now := time.Now().UTC()
	kept := make(map[string]bool, len(state))
	for videoID, video := range state {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		doc := videoDocument{
			VideoID:   videoID,
			Title:     video.Title,
			Notes:     video.Notes,
			UpdatedAt: now,
		}
		if doc.Notes == nil {
			doc.Notes = map[string]NoteState{}
		}

		encoded, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encode video %s: %w", videoID, err)
		}

		name := videoFileName(videoID)
		kept[name] = true
		if err := os.WriteFile(filepath.Join(b.dir, name), encoded, 0o644); err != nil {
			return fmt.Errorf("write video %s: %w", videoID, err)
		}
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("read notes directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), videoFileSuffix) {
			continue
		}
		if kept[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, entry.Name())); err != nil {
			b.logger.Warn("removing stale video document failed",
				zap.String("name", entry.Name()), zap.Error(err))
		}
	}

	return nil
}

// Watch emits a signal whenever the directory is modified by something other
// than this backend, until the context is done. Callers typically respond by
// reloading the collection.
func (b *VideoScopedBackend) Watch(ctx context.Context) (<-chan struct{}, error) {
	if b == nil {
		return nil, ErrBackendUnavailable
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(b.dir); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, fmt.Errorf("watch notes directory: %w", err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer watcher.Close() //nolint:errcheck
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, videoFileSuffix) {
					continue
				}
				if b.isSelfWrite() {
					continue
				}
				b.logger.Debug("external change to notes directory",
					zap.String("name", event.Name), zap.String("op", event.Op.String()))
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				b.logger.Warn("notes directory watcher error", zap.Error(err))
			}
		}
	}()

	return changes, nil
}

func (b *VideoScopedBackend) isSelfWrite() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().Before(b.selfWriteUntil)
}

// videoFileName maps a video identifier onto a safe file name. Identifier
// characters outside [A-Za-z0-9_-] are replaced; the identifier itself is
// stored inside the document.
func videoFileName(videoID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, videoID)
	return sanitized + videoFileSuffix
}
