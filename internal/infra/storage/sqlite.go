package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stx_nexus/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// InMemoryDSN keeps the archive for the lifetime of the process only.
const InMemoryDSN = "file::memory:?cache=shared"

// Storage is the SQLite archive of completed orders.
// The registry writes to it; nothing is read back at startup.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens the archive at dsn. An empty dsn uses InMemoryDSN.
func NewStorage(dsn string) (*Storage, error) {
	if dsn == "" {
		dsn = InMemoryDSN
	}

	// Ensure directory exists for file databases
	if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.OrderRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Order Archive Operations
// ======================================================================================

// SaveCompleted archives a completed order. Re-archiving the same id overwrites it.
func (s *Storage) SaveCompleted(o *domain.Order) error {
	if o.Status != domain.OrderStatusCompleted {
		return fmt.Errorf("archive %s: status %s is not terminal", o.ID, o.Status)
	}
	rec := domain.NewOrderRecord(o)
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

// GetOrder retrieves an archived order by id
func (s *Storage) GetOrder(id string) (*domain.OrderRecord, error) {
	var rec domain.OrderRecord
	err := s.db.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListOrders retrieves archived orders in completion order
func (s *Storage) ListOrders() ([]domain.OrderRecord, error) {
	var recs []domain.OrderRecord
	err := s.db.Order("completed_at asc").Find(&recs).Error
	return recs, err
}

// CountByNetwork returns the number of archived orders per network
func (s *Storage) CountByNetwork() (map[string]int64, error) {
	var rows []struct {
		Network string
		Count   int64
	}
	if err := s.db.Model(&domain.OrderRecord{}).
		Select("network, count(*) as count").
		Group("network").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Network] = r.Count
	}
	return result, nil
}

// Close releases the underlying connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
