package syncstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

// testStoreContract runs the behaviour every driver must share.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	id := HashKey(t.Name())

	t.Run("missing", func(t *testing.T) {
		meta, err := s.GetMeta(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, syncproto.Meta{}, meta)

		_, ok, err := s.GetBackup(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put then read", func(t *testing.T) {
		rec := Record{ID: id, ServerUpdatedAtISO: "2025-10-03T12:00:00.000Z", BackupJSON: `{"seasonPasses":[]}`, SizeBytes: 19}
		require.NoError(t, s.PutBackup(ctx, rec))

		meta, err := s.GetMeta(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, syncproto.Meta{Exists: true, ServerUpdatedAtISO: rec.ServerUpdatedAtISO, SizeBytes: 19}, meta)

		b, ok, err := s.GetBackup(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, syncproto.Backup{ServerUpdatedAtISO: rec.ServerUpdatedAtISO, BackupJSON: rec.BackupJSON}, b)
	})

	t.Run("overwrite", func(t *testing.T) {
		rec := Record{ID: id, ServerUpdatedAtISO: "2025-10-04T08:00:00.000Z", BackupJSON: `{"seasonPasses":[{}]}`, SizeBytes: 21}
		require.NoError(t, s.PutBackup(ctx, rec))

		b, ok, err := s.GetBackup(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec.BackupJSON, b.BackupJSON)
		assert.Equal(t, rec.ServerUpdatedAtISO, b.ServerUpdatedAtISO)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				other := HashKey(fmt.Sprintf("%s-%d", t.Name(), i%4))
				payload := fmt.Sprintf(`{"seasonPasses":[],"n":%d}`, i)
				assert.NoError(t, s.PutBackup(ctx, Record{
					ID:                 other,
					ServerUpdatedAtISO: fmt.Sprintf("2025-10-05T00:00:%02d.000Z", i),
					BackupJSON:         payload,
					SizeBytes:          int64(len(payload)),
				}))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 4; i++ {
			other := HashKey(fmt.Sprintf("%s-%d", t.Name(), i))
			meta, err := s.GetMeta(ctx, other)
			require.NoError(t, err)
			assert.True(t, meta.Exists)
			b, ok, err := s.GetBackup(ctx, other)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, meta.ServerUpdatedAtISO, b.ServerUpdatedAtISO)
		}
	})

	assert.NoError(t, s.Ping(ctx))
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashKey(""))
	assert.Len(t, HashKey("my-sync-key"), 64)
	assert.NotEqual(t, HashKey("abcdefgh"), HashKey("abcdefgi"))
}

func TestFileStore(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "dev", "sync-store.json"), nil)
	require.NoError(t, err)
	defer s.Close()
	testStoreContract(t, s)
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sync-store.json")

	s, err := OpenFileStore(path, nil)
	require.NoError(t, err)
	rec := Record{ID: HashKey("restart-key"), ServerUpdatedAtISO: "2025-10-03T12:00:00.000Z", BackupJSON: `{"seasonPasses":[]}`, SizeBytes: 19}
	require.NoError(t, s.PutBackup(ctx, rec))

	reopened, err := OpenFileStore(path, nil)
	require.NoError(t, err)
	b, ok, err := reopened.GetBackup(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.BackupJSON, b.BackupJSON)

	// No temp files are left beside the store.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreSkipsMalformedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync-store.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"good": {"serverUpdatedAtISO": "2025-10-03T12:00:00.000Z", "backupJson": "{}", "sizeBytes": 2},
		"noSize": {"serverUpdatedAtISO": "2025-10-03T12:00:00.000Z", "backupJson": "{}"},
		"wrongType": {"serverUpdatedAtISO": 5, "backupJson": "{}", "sizeBytes": 2},
		"notObject": "x"
	}`), 0o600))

	s, err := OpenFileStore(path, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for id, want := range map[string]bool{"good": true, "noSize": false, "wrongType": false, "notObject": false} {
		meta, err := s.GetMeta(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, meta.Exists, id)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync-store.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := OpenFileStore(path, nil)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "dev", "sync-store.sqlite"), nil)
	require.NoError(t, err)
	defer s.Close()
	testStoreContract(t, s)
}

func TestNewSelectsDriver(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		SyncStoreDriver: config.DriverSQLite,
		SyncStorePath:   filepath.Join(dir, "store.json"),
		SyncSQLitePath:  filepath.Join(dir, "store.sqlite"),
	}

	s, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)

	cfg.SyncStoreDriver = config.DriverJSON
	s2, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s2)

	cfg.SyncStoreDriver = "bogus"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
