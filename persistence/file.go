package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// File names inside the data directory.
const (
	StatisticsFile  = "statistics.json"
	HistoryFile     = "history.json"
	MaintenanceFile = "maintenance.json"
)

// FileStore keeps each document as a flat, indented JSON object in dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStore) ReadStatistics(ctx context.Context) (Statistics, error) {
	return readDocument[Record](s.path(StatisticsFile))
}

func (s *FileStore) WriteStatistics(ctx context.Context, stats Statistics) error {
	return mergeDocument(s.path(StatisticsFile), stats)
}

func (s *FileStore) ReadHistory(ctx context.Context) (History, error) {
	return readDocument[[]Record](s.path(HistoryFile))
}

func (s *FileStore) WriteHistory(ctx context.Context, history History) error {
	return mergeDocument(s.path(HistoryFile), history)
}

func (s *FileStore) ReadMaintenance(ctx context.Context) (MaintenanceFlags, error) {
	return readDocument[bool](s.path(MaintenanceFile))
}

func (s *FileStore) WriteMaintenance(ctx context.Context, maintenance MaintenanceFlags) error {
	return mergeDocument(s.path(MaintenanceFile), maintenance)
}

func (s *FileStore) Close() error {
	return nil
}

func readDocument[T any](path string) (map[string]T, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]T{}, nil
	}
	if err != nil {
		return nil, err
	}

	doc := map[string]T{}
	if err := json.Unmarshal(b, &doc); err != nil {
		logrus.Warnf("Ignoring unreadable %s: %s", path, err)

		return map[string]T{}, nil
	}

	// a document holding JSON null decodes to a nil map
	if doc == nil {
		return map[string]T{}, nil
	}

	return doc, nil
}

func mergeDocument[T any, M ~map[string]T](path string, updates M) error {
	doc, err := readDocument[T](path)
	if err != nil {
		return err
	}

	for k, v := range updates {
		doc[k] = v
	}

	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, b, 0o644)
}
