package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLStore keeps the documents in a SQLite database. It honours the same
// contract as FileStore: whole-document reads, merging writes, last writer
// wins.
type SQLStore struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&StatisticRow{}, &HistoryRow{}, &MaintenanceRow{}); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) ReadStatistics(ctx context.Context) (Statistics, error) {
	var rows []StatisticRow

	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := make(Statistics, len(rows))
	for _, row := range rows {
		stats[row.Service] = Record{Status: Status(row.Status), Timestamp: row.Timestamp.UTC()}
	}

	return stats, nil
}

func (s *SQLStore) WriteStatistics(ctx context.Context, stats Statistics) error {
	if len(stats) == 0 {
		return nil
	}

	rows := make([]StatisticRow, 0, len(stats))
	for name, rec := range stats {
		rows = append(rows, StatisticRow{Service: name, Status: string(rec.Status), Timestamp: rec.Timestamp.UTC()})
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func (s *SQLStore) ReadHistory(ctx context.Context) (History, error) {
	var rows []HistoryRow

	if err := s.db.WithContext(ctx).Order("service, id").Find(&rows).Error; err != nil {
		return nil, err
	}

	history := History{}
	for _, row := range rows {
		history[row.Service] = append(history[row.Service], Record{Status: Status(row.Status), Timestamp: row.Timestamp.UTC()})
	}

	return history, nil
}

// WriteHistory replaces the entry list of every service present in history.
func (s *SQLStore) WriteHistory(ctx context.Context, history History) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for name, recs := range history {
			if err := tx.Delete(&HistoryRow{}, "service = ?", name).Error; err != nil {
				return fmt.Errorf("could not clear history of %s: %w", name, err)
			}

			if len(recs) == 0 {
				continue
			}

			rows := make([]HistoryRow, 0, len(recs))
			for _, rec := range recs {
				rows = append(rows, HistoryRow{Service: name, Status: string(rec.Status), Timestamp: rec.Timestamp.UTC()})
			}

			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("could not write history of %s: %w", name, err)
			}
		}

		return nil
	})
}

func (s *SQLStore) ReadMaintenance(ctx context.Context) (MaintenanceFlags, error) {
	var rows []MaintenanceRow

	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	maintenance := make(MaintenanceFlags, len(rows))
	for _, row := range rows {
		maintenance[row.Service] = row.Enabled
	}

	return maintenance, nil
}

func (s *SQLStore) WriteMaintenance(ctx context.Context, maintenance MaintenanceFlags) error {
	if len(maintenance) == 0 {
		return nil
	}

	rows := make([]MaintenanceRow, 0, len(maintenance))
	for name, on := range maintenance {
		rows = append(rows, MaintenanceRow{Service: name, Enabled: on})
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
