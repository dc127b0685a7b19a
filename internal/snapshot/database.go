package snapshot

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is a persisted snapshot document.
type Record struct {
	gorm.Model `json:"-"`
	SnapshotID string    `gorm:"uniqueIndex" json:"snapshot_id"`
	Document   string    `json:"document"` // JSON-encoded Document body
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists snapshot documents.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save serializes doc and writes a new record.
func (s *Store) Save(doc *Document) (*Record, error) {
	body, err := MarshalDocument(doc)
	if err != nil {
		return nil, err
	}

	record := &Record{
		SnapshotID: "SNAP_" + uuid.New().String(),
		Document:   string(body),
		CreatedAt:  time.Now(),
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// LoadLatest decodes the most recent persisted snapshot. Returns nil with no
// error when none exists yet.
func (s *Store) LoadLatest() (*Document, error) {
	var record Record
	if err := s.db.Order("created_at DESC").First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return UnmarshalDocument([]byte(record.Document))
}
