package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	sqlStore, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	return map[string]Store{"file": fs, "sqlite": sqlStore}
}

func TestRecordStatus(t *testing.T) {
	ctx := context.Background()
	t1 := time.Unix(1700000000, 0).UTC()
	t2 := time.Unix(1700000300, 500000000).UTC()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RecordStatus(ctx, s, "api", PendingResolution, t1))
			require.NoError(t, RecordStatus(ctx, s, "api", Operational, t2))
			require.NoError(t, RecordStatus(ctx, s, "db", AutoPublished, t1))

			stats, err := s.ReadStatistics(ctx)
			require.NoError(t, err)
			require.Len(t, stats, 2)
			assert.Equal(t, Operational, stats["api"].Status)
			assert.True(t, t2.Equal(stats["api"].Timestamp))
			assert.Equal(t, AutoPublished, stats["db"].Status)

			history, err := s.ReadHistory(ctx)
			require.NoError(t, err)
			require.Len(t, history["api"], 2)
			assert.Equal(t, PendingResolution, history["api"][0].Status)
			assert.Equal(t, Operational, history["api"][1].Status)
			require.Len(t, history["db"], 1)

			// every statistics entry is mirrored by the last history entry
			for svc, rec := range stats {
				last := history[svc][len(history[svc])-1]
				assert.Equal(t, rec.Status, last.Status, svc)
				assert.True(t, rec.Timestamp.Equal(last.Timestamp), svc)
			}
		})
	}
}

func TestCycle(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RecordStatus(ctx, s, "web", Degraded, now))

			added, err := Cycle(ctx, s, []string{"api", "web", "db"}, now)
			require.NoError(t, err)
			assert.Equal(t, []string{"api", "db"}, added)

			added, err = Cycle(ctx, s, []string{"api", "web", "db"}, now.Add(time.Minute))
			require.NoError(t, err)
			assert.Empty(t, added)

			stats, err := s.ReadStatistics(ctx)
			require.NoError(t, err)
			assert.Equal(t, Unknown, stats["api"].Status)
			assert.Equal(t, Degraded, stats["web"].Status)

			history, err := s.ReadHistory(ctx)
			require.NoError(t, err)
			assert.Len(t, history["api"], 1)
			assert.Len(t, history["web"], 1)
		})
	}
}

func TestMaintenance(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			m, err := s.ReadMaintenance(ctx)
			require.NoError(t, err)
			assert.Empty(t, m)

			require.NoError(t, SetMaintenance(ctx, s, "api", true))
			require.NoError(t, SetMaintenance(ctx, s, "db", true))
			require.NoError(t, SetMaintenance(ctx, s, "api", false))

			m, err = s.ReadMaintenance(ctx)
			require.NoError(t, err)
			assert.Equal(t, MaintenanceFlags{"api": false, "db": true}, m)
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	t.Run("corrupt_is_empty", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, StatisticsFile), []byte("{not json"), 0o644))

		stats, err := s.ReadStatistics(ctx)
		require.NoError(t, err)
		assert.Empty(t, stats)

		require.NoError(t, RecordStatus(ctx, s, "api", Operational, time.Unix(1700000000, 0)))

		stats, err = s.ReadStatistics(ctx)
		require.NoError(t, err)
		assert.Len(t, stats, 1)
	})

	t.Run("null_is_empty", func(t *testing.T) {
		for _, file := range []string{StatisticsFile, HistoryFile, MaintenanceFile} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte("null"), 0o644))
		}

		stats, err := s.ReadStatistics(ctx)
		require.NoError(t, err)
		assert.NotNil(t, stats)
		assert.Empty(t, stats)

		assert.NotPanics(t, func() {
			require.NoError(t, RecordStatus(ctx, s, "api", Operational, time.Unix(1700000000, 0)))
			require.NoError(t, SetMaintenance(ctx, s, "api", true))
		})

		stats, err = s.ReadStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, Operational, stats["api"].Status)

		history, err := s.ReadHistory(ctx)
		require.NoError(t, err)
		assert.Len(t, history["api"], 1)
	})

	t.Run("reads_original_format", func(t *testing.T) {
		doc := `{
    "api": {
        "status": "Severe outage",
        "timestamp": 1700000000.25
    }
}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, StatisticsFile), []byte(doc), 0o644))

		stats, err := s.ReadStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, SevereOutage, stats["api"].Status)
		assert.Equal(t, time.Unix(1700000000, 250000000).UTC(), stats["api"].Timestamp)
	})

	t.Run("writes_flat_json", func(t *testing.T) {
		require.NoError(t, SetMaintenance(ctx, s, "api", true))

		b, err := os.ReadFile(filepath.Join(dir, MaintenanceFile))
		require.NoError(t, err)
		assert.JSONEq(t, `{"api": true}`, string(b))
	})
}

func TestStatusValid(t *testing.T) {
	for _, s := range PublishableStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.True(t, AutoPublished.Valid())
	assert.False(t, Status("Exploded").Valid())
}
