package persistence

import "time"

// StatisticRow holds the latest status of one service.
type StatisticRow struct {
	Service   string `gorm:"primaryKey"`
	Status    string
	Timestamp time.Time
}

func (StatisticRow) TableName() string { return "statistics" }

// HistoryRow is one appended status change. ID preserves append order.
type HistoryRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Service   string `gorm:"index"`
	Status    string
	Timestamp time.Time
}

func (HistoryRow) TableName() string { return "history" }

type MaintenanceRow struct {
	Service string `gorm:"primaryKey"`
	Enabled bool
}

func (MaintenanceRow) TableName() string { return "maintenance" }
