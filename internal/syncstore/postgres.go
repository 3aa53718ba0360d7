package syncstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS spm_backups (
	id                    TEXT PRIMARY KEY,
	server_updated_at_iso TEXT NOT NULL,
	size_bytes            BIGINT NOT NULL,
	backup_json           TEXT NOT NULL
)`

// PostgresStore keeps backups in a shared Postgres table, for deployments
// that run more than one server instance.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	writeMu sync.Mutex
}

// OpenPostgresStore creates and validates a connection pool and ensures the
// table exists.
func OpenPostgresStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Ensure the table and register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, postgresSchema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Postgres sync store opened", "max_conns", cfg.DBPoolMaxConns)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// registerPreparedStatements registers every statement the store uses.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		"health_check": "SELECT 1",

		"sync_get_meta":   "SELECT server_updated_at_iso, size_bytes FROM spm_backups WHERE id = $1",
		"sync_get_backup": "SELECT server_updated_at_iso, backup_json FROM spm_backups WHERE id = $1",
		"sync_put_backup": `INSERT INTO spm_backups (id, server_updated_at_iso, size_bytes, backup_json)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				server_updated_at_iso = EXCLUDED.server_updated_at_iso,
				size_bytes            = EXCLUDED.size_bytes,
				backup_json           = EXCLUDED.backup_json`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetMeta(ctx context.Context, id string) (syncproto.Meta, error) {
	meta := syncproto.Meta{Exists: true}
	err := s.pool.QueryRow(ctx, "sync_get_meta", id).Scan(&meta.ServerUpdatedAtISO, &meta.SizeBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return syncproto.Meta{}, nil
	}
	if err != nil {
		return syncproto.Meta{}, fmt.Errorf("postgres get meta: %w", err)
	}
	return meta, nil
}

func (s *PostgresStore) GetBackup(ctx context.Context, id string) (syncproto.Backup, bool, error) {
	var b syncproto.Backup
	err := s.pool.QueryRow(ctx, "sync_get_backup", id).Scan(&b.ServerUpdatedAtISO, &b.BackupJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return syncproto.Backup{}, false, nil
	}
	if err != nil {
		return syncproto.Backup{}, false, fmt.Errorf("postgres get backup: %w", err)
	}
	return b, true, nil
}

func (s *PostgresStore) PutBackup(ctx context.Context, rec Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.pool.Exec(ctx, "sync_put_backup", rec.ID, rec.ServerUpdatedAtISO, rec.SizeBytes, rec.BackupJSON); err != nil {
		return fmt.Errorf("postgres put backup: %w", err)
	}
	return nil
}

// Ping runs a trivial query to verify the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var n int
	return s.pool.QueryRow(ctx, "health_check").Scan(&n)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
