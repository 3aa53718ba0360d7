package syncstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

// Hash fields; the payload lives beside the metadata so a meta read never
// transfers it.
const (
	fieldUpdatedAt = "serverUpdatedAtISO"
	fieldSize      = "sizeBytes"
	fieldBackup    = "backupJson"
)

// RedisStore keeps each backup in a hash at prefix+id.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger

	writeMu sync.Mutex
}

// OpenRedisStore connects and pings the server.
func OpenRedisStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("Redis sync store opened", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return NewRedisStore(client, cfg.RedisPrefix, logger), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) GetMeta(ctx context.Context, id string) (syncproto.Meta, error) {
	vals, err := s.client.HMGet(ctx, s.key(id), fieldUpdatedAt, fieldSize).Result()
	if err != nil {
		return syncproto.Meta{}, fmt.Errorf("redis get meta: %w", err)
	}
	updatedAt, ok := vals[0].(string)
	if !ok {
		return syncproto.Meta{}, nil
	}
	sizeText, _ := vals[1].(string)
	size, err := strconv.ParseInt(sizeText, 10, 64)
	if err != nil {
		return syncproto.Meta{}, fmt.Errorf("redis get meta: bad size %q", sizeText)
	}
	return syncproto.Meta{Exists: true, ServerUpdatedAtISO: updatedAt, SizeBytes: size}, nil
}

func (s *RedisStore) GetBackup(ctx context.Context, id string) (syncproto.Backup, bool, error) {
	vals, err := s.client.HMGet(ctx, s.key(id), fieldUpdatedAt, fieldBackup).Result()
	if errors.Is(err, redis.Nil) {
		return syncproto.Backup{}, false, nil
	}
	if err != nil {
		return syncproto.Backup{}, false, fmt.Errorf("redis get backup: %w", err)
	}
	updatedAt, ok1 := vals[0].(string)
	payload, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return syncproto.Backup{}, false, nil
	}
	return syncproto.Backup{ServerUpdatedAtISO: updatedAt, BackupJSON: payload}, true, nil
}

// PutBackup writes all three fields in one HSET, which Redis applies
// atomically.
func (s *RedisStore) PutBackup(ctx context.Context, rec Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.client.HSet(ctx, s.key(rec.ID),
		fieldUpdatedAt, rec.ServerUpdatedAtISO,
		fieldSize, rec.SizeBytes,
		fieldBackup, rec.BackupJSON,
	).Err()
	if err != nil {
		return fmt.Errorf("redis put backup: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
