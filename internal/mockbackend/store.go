// Package mockbackend is a stand-in for the FlashFood backend: every
// collection is served with the {EC, EM, data} envelope and persisted in
// SQLite.
package mockbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

// Record is one stored document of any collection.
type Record struct {
	Seq        uint      `gorm:"primaryKey;autoIncrement"`
	ID         string    `gorm:"uniqueIndex;size:36;not null"`
	Collection string    `gorm:"index;not null"`
	Data       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path. ":memory:" keeps
// everything in process.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database shared across requests.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert stores doc under a fresh id and returns it with the id and
// created_at fields filled in.
func (s *Store) Insert(collection string, doc map[string]interface{}) (map[string]interface{}, error) {
	now := time.Now().UTC()
	id := uuid.New().String()
	doc["id"] = id
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = now.Unix()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	rec := Record{
		ID:         id,
		Collection: collection,
		Data:       string(data),
		CreatedAt:  now,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return doc, nil
}

func (s *Store) List(collection string) ([]json.RawMessage, error) {
	var recs []Record
	if err := s.db.Where("collection = ?", collection).Order("seq").Find(&recs).Error; err != nil {
		return nil, err
	}
	return raw(recs), nil
}

// Page returns up to limit records starting at offset, plus the collection
// total.
func (s *Store) Page(collection string, limit, offset int) ([]json.RawMessage, int64, error) {
	var total int64
	q := s.db.Model(&Record{}).Where("collection = ?", collection)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []Record
	err := s.db.Where("collection = ?", collection).
		Order("seq").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, err
	}
	return raw(recs), total, nil
}

func (s *Store) Get(collection, id string) (json.RawMessage, error) {
	var rec Record
	err := s.db.Where("collection = ? AND id = ?", collection, id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(rec.Data), nil
}

func (s *Store) Exists(collection, id string) (bool, error) {
	var n int64
	err := s.db.Model(&Record{}).Where("collection = ? AND id = ?", collection, id).Count(&n).Error
	return n > 0, err
}

func (s *Store) Count(collection string) (int64, error) {
	var n int64
	err := s.db.Model(&Record{}).Where("collection = ?", collection).Count(&n).Error
	return n, err
}

func raw(recs []Record) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		out = append(out, json.RawMessage(r.Data))
	}
	return out
}
