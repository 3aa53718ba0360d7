package syncstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

// FileStore keeps every backup in memory and mirrors the whole map to a
// single JSON document on each write. Suited to development and single-user
// deployments.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]Record
}

// OpenFileStore loads path (a missing file is an empty store) and returns
// only after the load has finished.
func OpenFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{path: path, logger: logger, records: make(map[string]Record)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("Sync store file not found, starting empty", "path", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading sync store %s: %w", path, err)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing sync store %s: %w", path, err)
	}
	skipped := 0
	for id, v := range parsed {
		rec, ok := decodeRecord(v)
		if !ok {
			skipped++
			continue
		}
		rec.ID = id
		s.records[id] = rec
	}
	logger.Info("Sync store loaded", "path", path, "records", len(s.records), "skipped", skipped)
	return s, nil
}

// decodeRecord rejects entries missing any of the three fields.
func decodeRecord(raw json.RawMessage) (Record, bool) {
	var head struct {
		ServerUpdatedAtISO *string `json:"serverUpdatedAtISO"`
		BackupJSON         *string `json:"backupJson"`
		SizeBytes          *int64  `json:"sizeBytes"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Record{}, false
	}
	if head.ServerUpdatedAtISO == nil || head.BackupJSON == nil || head.SizeBytes == nil {
		return Record{}, false
	}
	return Record{
		ServerUpdatedAtISO: *head.ServerUpdatedAtISO,
		BackupJSON:         *head.BackupJSON,
		SizeBytes:          *head.SizeBytes,
	}, true
}

func (s *FileStore) GetMeta(_ context.Context, id string) (syncproto.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return syncproto.Meta{}, nil
	}
	return rec.meta(), nil
}

func (s *FileStore) GetBackup(_ context.Context, id string) (syncproto.Backup, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return syncproto.Backup{}, false, nil
	}
	return rec.backup(), true, nil
}

// PutBackup updates the map and persists it before returning. On a failed
// write the previous record is restored so memory matches disk.
func (s *FileStore) PutBackup(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[rec.ID]
	s.records[rec.ID] = rec
	if err := s.persistLocked(); err != nil {
		if existed {
			s.records[rec.ID] = prev
		} else {
			delete(s.records, rec.ID)
		}
		return err
	}
	return nil
}

func (s *FileStore) persistLocked() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating sync store dir: %w", err)
		}
	}
	raw, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("encoding sync store: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("writing sync store %s: %w", s.path, err)
	}
	return nil
}

// Ping checks that the store's directory is usable.
func (s *FileStore) Ping(context.Context) error {
	return os.MkdirAll(filepath.Dir(s.path), 0o755)
}

func (s *FileStore) Close() error { return nil }
