// Package storage persists the local call-history database
package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/deskpilot/deskpilot/pkg/utils"
)

// CallRecord is one row of call history. Written best-effort after every
// orchestrated call; never read on the hot path.
type CallRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	RequestID      string    `json:"request_id" gorm:"index"`
	Provider       string    `json:"provider" gorm:"index"`
	Model          string    `json:"model"`
	PromptChars    int       `json:"prompt_chars"`
	ContentChars   int       `json:"content_chars"`
	TotalTokens    int       `json:"total_tokens"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProviderTotal aggregates history per provider
type ProviderTotal struct {
	Provider    string `json:"provider"`
	Calls       int64  `json:"calls"`
	Failures    int64  `json:"failures"`
	TotalTokens int64  `json:"total_tokens"`
}

// Store wraps the local sqlite database
type Store struct {
	db     *gorm.DB
	logger *utils.Logger
}

// Open opens (or creates) the database at path and migrates the schema
func Open(path string, logger *utils.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open call history database: %w", err)
	}

	if err := db.AutoMigrate(&CallRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate call history schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Save writes one record. Errors are logged, not returned: history must
// never block or fail a call.
func (s *Store) Save(record *CallRecord) {
	if err := s.db.Create(record).Error; err != nil {
		s.logger.WithError(err).Warn("Failed to save call record")
	}
}

// Recent returns the latest n records, newest first
func (s *Store) Recent(n int) ([]CallRecord, error) {
	var records []CallRecord
	err := s.db.Order("id desc").Limit(n).Find(&records).Error
	return records, err
}

// ProviderTotals aggregates calls, failures and tokens per provider
func (s *Store) ProviderTotals() ([]ProviderTotal, error) {
	var totals []ProviderTotal
	err := s.db.Model(&CallRecord{}).
		Select("provider, count(*) as calls, sum(case when success then 0 else 1 end) as failures, sum(total_tokens) as total_tokens").
		Group("provider").
		Scan(&totals).Error
	return totals, err
}

// Close closes the underlying database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
