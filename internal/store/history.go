package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/gradekit/speed-grader/internal/store/model"
)

// History records finished grading runs for the teacher-facing history view.
type History interface {
	Create(ctx context.Context, record *model.GradingRecord) error
	List(ctx context.Context, limit int) ([]model.GradingRecord, error)
}

type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Create(ctx context.Context, record *model.GradingRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *HistoryStore) List(ctx context.Context, limit int) ([]model.GradingRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []model.GradingRecord
	tx := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return records, nil
}
