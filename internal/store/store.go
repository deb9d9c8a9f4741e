package store

import (
	"gorm.io/gorm"

	"github.com/gradekit/speed-grader/internal/store/model"
)

type Store interface {
	Job() Job
	History() History
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db      *gorm.DB
	job     Job
	history History
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:      db,
		job:     NewMemoryJobStore(),
		history: NewHistoryStore(db),
	}
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) History() History {
	return s.history
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.GradingRecord{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
