// Package journal persists observed events with GORM.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrEmptyEventType is returned when appending an entry without event type.
var ErrEmptyEventType = errors.New("journal: event type is empty")

// Repository appends events to the journal and reads them back.
type Repository interface {
	Append(ctx context.Context, eventType string, payload []byte) (Entry, error)
	List(ctx context.Context, eventType string, limit int) ([]Entry, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a journal repository using the provided *gorm.DB.
func New(db *gorm.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Append implements Repository.
func (r *repository) Append(ctx context.Context, eventType string, payload []byte) (Entry, error) {
	if eventType == "" {
		return Entry{}, ErrEmptyEventType
	}
	entry := Entry{
		ID:         uuid.New(),
		EventType:  eventType,
		Payload:    payload,
		RecordedAt: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return Entry{}, fmt.Errorf("journal: append %s: %w", eventType, err)
	}
	return entry, nil
}

// List returns the most recent entries first. An empty eventType lists every
// type; a non-positive limit lists everything.
func (r *repository) List(ctx context.Context, eventType string, limit int) ([]Entry, error) {
	q := r.db.WithContext(ctx).Order("recorded_at DESC")
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return entries, nil
}

// Open connects to Postgres when databaseURL is set and to the SQLite file at
// sqlitePath otherwise, then migrates the journal table.
func Open(databaseURL, sqlitePath, appEnv string) (*gorm.DB, error) {
	var logMode logger.LogLevel
	if appEnv == "development" {
		logMode = logger.Info
	} else {
		logMode = logger.Silent
	}

	var dialector gorm.Dialector
	if databaseURL != "" {
		dialector = postgres.Open(databaseURL)
	} else {
		if sqlitePath == "" {
			return nil, errors.New("DATABASE_URL and DATABASE_SQLITE_PATH are not set")
		}
		dialector = sqlite.Open(sqlitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return db, nil
}
