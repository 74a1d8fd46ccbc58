package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// snapshotRow is one key of the snapshots table.
type snapshotRow struct {
	Key       string `gorm:"column:snapshot_key;primaryKey;size:128"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string { return "snapshots" }

// SQL keeps snapshots in a single key/value table through gorm.
type SQL struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a sqlite database file.
func OpenSQLite(path string) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return NewSQL(db)
}

// OpenPostgres connects with a libpq-style DSN.
func OpenPostgres(dsn string) (*SQL, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewSQL(db)
}

// NewSQL migrates the snapshots table on an existing connection.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &SQL{db: db}, nil
}

// Get reads the row for key.
func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Value, true, nil
}

// Set upserts the row for key.
func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	row := snapshotRow{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// Delete removes the row for key.
func (s *SQL) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&snapshotRow{}).Error
}

func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
