// Package journal keeps a local SQLite record of enhanced prompts,
// decisions and reported errors so they can be reviewed from the CLI.
package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindEnhancement Kind = "enhancement"
	KindDecision    Kind = "decision"
	KindSave        Kind = "save"
)

// ParseKind validates a kind name; the empty string means any kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindEnhancement, KindDecision, KindSave:
		return k, nil
	default:
		return "", fmt.Errorf("unknown journal kind %q", s)
	}
}

// Entry is one journal row.
type Entry struct {
	ID        string    `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`

	Kind  Kind `gorm:"index"`
	Level string
	Query string
	File  string
}

const schemaVersion = 1

// Store is the journal database.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the journal at dbFilePath and migrates it when the
// schema marker next to it is missing or stale.
func Open(dbFilePath string) (*Store, error) {
	dbFileExists := true
	if _, err := os.Stat(dbFilePath); errors.Is(err, os.ErrNotExist) {
		dbFileExists = false
	} else if err != nil {
		return nil, fmt.Errorf("checking journal db: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	markerPath := dbFilePath + ".version"
	if needsMigration(dbFileExists, db, markerPath) {
		if err := db.AutoMigrate(&Entry{}); err != nil {
			return nil, fmt.Errorf("migrating journal schema: %w", err)
		}
		if err := os.WriteFile(markerPath, []byte(strconv.Itoa(schemaVersion)), 0644); err != nil {
			return nil, fmt.Errorf("writing journal schema version: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func needsMigration(dbFileExists bool, db *gorm.DB, markerPath string) bool {
	if !dbFileExists {
		return true
	}
	if !schemaVersionMatches(markerPath) {
		return true
	}
	// A marker without the table means the db was replaced or truncated.
	return !db.Migrator().HasTable(&Entry{})
}

func schemaVersionMatches(markerPath string) bool {
	data, err := os.ReadFile(markerPath)
	if err != nil {
		return false
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	return err == nil && version == schemaVersion
}

// Record appends an entry.
func (s *Store) Record(ctx context.Context, kind Kind, level, query, file string) (*Entry, error) {
	entry := Entry{
		ID:        ulid.Make().String(),
		CreatedAt: time.Now(),
		Kind:      kind,
		Level:     level,
		Query:     query,
		File:      file,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Recent returns up to limit of the newest entries of kind (any kind when
// empty), oldest first.
func (s *Store) Recent(ctx context.Context, kind Kind, limit int) ([]Entry, error) {
	var entries []Entry
	db := s.db.WithContext(ctx)
	if kind != "" {
		db = db.Where("kind = ?", kind)
	}
	if err := db.Order("created_at desc").Order("id desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}

// Search returns entries whose query contains text, newest first.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]Entry, error) {
	var entries []Entry
	result := s.db.WithContext(ctx).
		Where("query LIKE ?", "%"+text+"%").
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&Entry{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no journal entry found with id %s", id)
	}
	return nil
}

// Reset deletes every entry.
func (s *Store) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("DELETE FROM entries").Error
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
