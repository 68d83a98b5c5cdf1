// Package persistence keeps the statistics, history and maintenance
// documents of the monitor.
//
// Writes are read-merge-overwrite of a whole document without any locking
// across calls, so two concurrent writers may lose one another's update.
// Callers accept last-writer-wins.
package persistence

import (
	"context"
	"fmt"
	"time"
)

// Statistics maps a service name to its latest status.
type Statistics map[string]Record

// History maps a service name to every status it was given, oldest first.
type History map[string][]Record

// MaintenanceFlags maps a service name to its maintenance flag.
type MaintenanceFlags map[string]bool

// Store is a key-value backend for the three documents. Write* merges the
// given keys into the current document and replaces it. Reads of a missing
// or unreadable document yield an empty map.
type Store interface {
	ReadStatistics(ctx context.Context) (Statistics, error)
	WriteStatistics(ctx context.Context, stats Statistics) error
	ReadHistory(ctx context.Context) (History, error)
	WriteHistory(ctx context.Context, history History) error
	ReadMaintenance(ctx context.Context) (MaintenanceFlags, error)
	WriteMaintenance(ctx context.Context, maintenance MaintenanceFlags) error
	Close() error
}

// RecordStatus sets the statistics entry of name and appends the same
// record to its history.
func RecordStatus(ctx context.Context, s Store, name string, status Status, at time.Time) error {
	return record(ctx, s, Statistics{name: {Status: status, Timestamp: at}})
}

// record is the only path that writes statistics. Every entry written is
// mirrored into history.
func record(ctx context.Context, s Store, stats Statistics) error {
	if err := s.WriteStatistics(ctx, stats); err != nil {
		return fmt.Errorf("write statistics: %w", err)
	}

	history, err := s.ReadHistory(ctx)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	appended := make(History, len(stats))
	for name, rec := range stats {
		appended[name] = append(history[name], rec)
	}

	if err := s.WriteHistory(ctx, appended); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}

// Cycle inserts an Unknown entry for every name missing from statistics and
// returns the inserted names in the order given. A second call with the same
// names inserts nothing.
func Cycle(ctx context.Context, s Store, names []string, now time.Time) ([]string, error) {
	stats, err := s.ReadStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("read statistics: %w", err)
	}

	added := []string{}
	missing := Statistics{}

	for _, name := range names {
		if _, ok := stats[name]; ok {
			continue
		}
		if _, ok := missing[name]; ok {
			continue
		}

		missing[name] = Record{Status: Unknown, Timestamp: now}
		added = append(added, name)
	}

	if len(missing) == 0 {
		return added, nil
	}

	if err := record(ctx, s, missing); err != nil {
		return nil, err
	}

	return added, nil
}

// SetMaintenance persists the maintenance flag of name.
func SetMaintenance(ctx context.Context, s Store, name string, on bool) error {
	if err := s.WriteMaintenance(ctx, MaintenanceFlags{name: on}); err != nil {
		return fmt.Errorf("write maintenance: %w", err)
	}
	return nil
}
