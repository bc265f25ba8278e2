package journal

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a persisted event.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	EventType  string    `gorm:"type:varchar(128);not null;index"`
	Payload    []byte    `gorm:"not null"`
	RecordedAt time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for the Entry model.
func (Entry) TableName() string {
	return "event_journal"
}
