package transcript

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySqlArchive handles record persistence using GORM
type MySqlArchive struct {
	db *gorm.DB
}

// NewMySqlArchive creates a new archive with a GORM connection
func NewMySqlArchive(databaseURL string) (*MySqlArchive, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate tables
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &MySqlArchive{db: db}, nil
}

// Append saves records to the database in one transaction
func (a *MySqlArchive) Append(ctx context.Context, records ...*Record) error {
	if len(records) == 0 {
		return nil
	}

	result := a.db.WithContext(ctx).Create(records)
	if result.Error != nil {
		return fmt.Errorf("failed to save records: %w", result.Error)
	}

	return nil
}

// Search performs a substring search across archived content
func (a *MySqlArchive) Search(ctx context.Context, query string) ([]*Record, error) {
	var records []*Record
	searchPattern := "%" + query + "%"

	result := a.db.WithContext(ctx).Where("content LIKE ?", searchPattern).
		Order("created_at DESC").Order("id DESC").Limit(SearchLimit).Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search records: %w", result.Error)
	}

	return records, nil
}

// Session retrieves all records for a session
func (a *MySqlArchive) Session(ctx context.Context, sessionID string) ([]*Record, error) {
	var records []*Record
	result := a.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Order("id ASC").Find(&records)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to query records: %w", result.Error)
	}

	return records, nil
}

// Close closes the database connection
func (a *MySqlArchive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}
