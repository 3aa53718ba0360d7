package syncstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS spm_backups (
	id                 TEXT PRIMARY KEY,
	serverUpdatedAtISO TEXT NOT NULL,
	sizeBytes          INTEGER NOT NULL,
	backupJson         TEXT NOT NULL
);`

const sqlitePoolSize = 4

// SQLiteStore keeps backups in a single embedded table.
type SQLiteStore struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string

	writeMu sync.Mutex
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists before returning.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    sqlitePoolSize,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}

	s := &SQLiteStore{pool: pool, logger: logger, path: path}

	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite take: %w", err)
	}
	err = sqlitex.ExecuteScript(conn, sqliteSchema, nil)
	pool.Put(conn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}

	logger.Info("SQLite sync store opened", "path", path, "pool_size", sqlitePoolSize)
	return s, nil
}

// prepareSQLiteConn applies the pragmas every connection needs.
func prepareSQLiteConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetMeta(ctx context.Context, id string) (syncproto.Meta, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return syncproto.Meta{}, fmt.Errorf("sqlite take: %w", err)
	}
	defer s.pool.Put(conn)

	var meta syncproto.Meta
	err = sqlitex.Execute(conn,
		"SELECT serverUpdatedAtISO, sizeBytes FROM spm_backups WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				meta = syncproto.Meta{
					Exists:             true,
					ServerUpdatedAtISO: stmt.ColumnText(0),
					SizeBytes:          stmt.ColumnInt64(1),
				}
				return nil
			},
		})
	if err != nil {
		return syncproto.Meta{}, fmt.Errorf("sqlite get meta: %w", err)
	}
	return meta, nil
}

func (s *SQLiteStore) GetBackup(ctx context.Context, id string) (syncproto.Backup, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return syncproto.Backup{}, false, fmt.Errorf("sqlite take: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		b     syncproto.Backup
		found bool
	)
	err = sqlitex.Execute(conn,
		"SELECT serverUpdatedAtISO, backupJson FROM spm_backups WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				b = syncproto.Backup{ServerUpdatedAtISO: stmt.ColumnText(0), BackupJSON: stmt.ColumnText(1)}
				found = true
				return nil
			},
		})
	if err != nil {
		return syncproto.Backup{}, false, fmt.Errorf("sqlite get backup: %w", err)
	}
	return b, found, nil
}

func (s *SQLiteStore) PutBackup(ctx context.Context, rec Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO spm_backups (id, serverUpdatedAtISO, sizeBytes, backupJson)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			serverUpdatedAtISO = excluded.serverUpdatedAtISO,
			sizeBytes          = excluded.sizeBytes,
			backupJson         = excluded.backupJson`,
		&sqlitex.ExecOptions{
			Args: []any{rec.ID, rec.ServerUpdatedAtISO, rec.SizeBytes, rec.BackupJSON},
		})
	if err != nil {
		return fmt.Errorf("sqlite put backup: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite take: %w", err)
	}
	defer s.pool.Put(conn)
	return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
}

func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("SQLite sync store close error", "path", s.path, "error", err)
		return fmt.Errorf("closing sqlite %s: %w", s.path, err)
	}
	return nil
}
