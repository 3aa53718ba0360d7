// Package syncstore holds the server side of cloud sync: one full backup per
// access key, addressed by the key's hash, behind interchangeable drivers.
package syncstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

// Record is one stored backup. A put replaces any existing record for ID.
type Record struct {
	ID                 string `json:"-"`
	ServerUpdatedAtISO string `json:"serverUpdatedAtISO"`
	BackupJSON         string `json:"backupJson"`
	SizeBytes          int64  `json:"sizeBytes"`
}

func (r Record) meta() syncproto.Meta {
	return syncproto.Meta{Exists: true, ServerUpdatedAtISO: r.ServerUpdatedAtISO, SizeBytes: r.SizeBytes}
}

func (r Record) backup() syncproto.Backup {
	return syncproto.Backup{ServerUpdatedAtISO: r.ServerUpdatedAtISO, BackupJSON: r.BackupJSON}
}

// Store is implemented by every driver. Writers are serialized within one
// Store; separate processes sharing a backend resolve by last write wins.
type Store interface {
	// GetMeta reports whether a backup exists, without reading its payload.
	GetMeta(ctx context.Context, id string) (syncproto.Meta, error)
	GetBackup(ctx context.Context, id string) (syncproto.Backup, bool, error)
	PutBackup(ctx context.Context, rec Record) error
	Ping(ctx context.Context) error
	Close() error
}

// HashKey derives the storage id for an access key. Raw keys are never
// stored.
func HashKey(accessKey string) string {
	sum := sha256.Sum256([]byte(accessKey))
	return hex.EncodeToString(sum[:])
}

// New opens the driver named in cfg. It is called once at startup; cfg has
// already been validated by config.Load.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("driver", cfg.SyncStoreDriver)

	switch cfg.SyncStoreDriver {
	case config.DriverJSON:
		return OpenFileStore(cfg.SyncStorePath, logger)
	case config.DriverSQLite:
		return OpenSQLiteStore(cfg.SyncSQLitePath, logger)
	case config.DriverPostgres:
		return OpenPostgresStore(ctx, cfg, logger)
	case config.DriverRedis:
		return OpenRedisStore(ctx, cfg, logger)
	case config.DriverS3:
		return OpenS3Store(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unknown sync store driver %q", cfg.SyncStoreDriver)
}
