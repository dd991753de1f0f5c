package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stateKey is the single key the whole collection is stored under.
const stateKey = "notesData"

type kvEntry struct {
	Key       string `gorm:"column:key;primaryKey;size:190;not null"`
	ValueJSON string `gorm:"column:value_json;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (kvEntry) TableName() string {
	return "kv_entries"
}

// KeyValueBackend persists the annotation collection as one JSON blob in a
// SQLite key-value table.
type KeyValueBackend struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenKeyValue establishes the SQLite connection and performs schema
// migration for the key-value table.
func OpenKeyValue(path string, logger *zap.Logger) (*KeyValueBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, err
	}

	logger.Info("key-value backend initialized", zap.String("path", path))

	return &KeyValueBackend{db: db, logger: logger}, nil
}

// Load reads the stored blob. A database with no saved state yet loads as an
// empty collection.
func (b *KeyValueBackend) Load(ctx context.Context) (StateBlob, error) {
	if b == nil || b.db == nil {
		return nil, ErrBackendUnavailable
	}

	var entry kvEntry
	err := b.db.WithContext(ctx).Where("key = ?", stateKey).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StateBlob{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var state StateBlob
	if err := json.Unmarshal([]byte(entry.ValueJSON), &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

// Save replaces the stored blob with the provided full state.
func (b *KeyValueBackend) Save(ctx context.Context, state StateBlob) error {
	if b == nil || b.db == nil {
		return ErrBackendUnavailable
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	entry := kvEntry{Key: stateKey, ValueJSON: string(encoded)}
	if err := b.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (b *KeyValueBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
