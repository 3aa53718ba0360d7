package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/backup"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

// Keys are shared with earlier releases; renaming one orphans user data.
const (
	KeySeasonPasses = "season_passes"
	KeyActivePassID = "active_season_pass_id"
	KeyDataImported = "data_imported_v1"
	KeyMasterBackup = "master_backup_v1"
	KeyAppTheme     = "app_theme_v1"
	KeyLastSyncedAt = "cloud_sync_last_synced_at"
	KeySyncKey      = "cloud_sync_key"
	KeyAutoUpload   = "cloud_sync_auto_upload"
	KeyAutoDownload = "cloud_sync_auto_download"
)

// ErrClosed is returned for saves requested after Close.
var ErrClosed = errors.New("storage: store closed")

// Snapshot is everything the domain model persists.
type Snapshot struct {
	Passes          []model.SeasonPass
	ActiveID        string
	DataImportedRaw string
	// AppTheme is carried from restored backups so later backups keep it.
	AppTheme map[string]string
}

// LoadResult describes where a loaded snapshot came from.
type LoadResult struct {
	Snapshot
	Recovered bool // the master backup was used in place of season_passes
}

// saveRequest with a nil snap is a flush marker.
type saveRequest struct {
	snap *Snapshot
	done chan error
}

// Store persists snapshots through a single writer goroutine, so writes land
// in the order they were requested whether the caller waits or not.
type Store struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	queue  chan saveRequest
	wg     sync.WaitGroup
}

// NewStore starts the writer. Call Close to drain it.
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		queue:  make(chan saveRequest, 64),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	for req := range s.queue {
		if req.snap == nil {
			req.done <- nil
			continue
		}
		err := s.write(context.Background(), *req.snap)
		if err != nil {
			s.logger.Error("Local save failed", "error", err)
		}
		req.done <- err
	}
}

// Save persists snap and returns once it is durable.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	done := s.enqueue(snap)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveAsync queues snap and returns immediately. The channel receives the
// outcome; callers that do not care may ignore it.
func (s *Store) SaveAsync(snap Snapshot) <-chan error {
	return s.enqueue(snap)
}

func (s *Store) enqueue(snap Snapshot) chan error {
	done := make(chan error, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		done <- ErrClosed
		return done
	}
	s.queue <- saveRequest{snap: &snap, done: done}
	return done
}

// Flush waits until every save queued so far has been written.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan error, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.queue <- saveRequest{done: done}
	s.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending saves and stops the writer.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Store) write(ctx context.Context, snap Snapshot) error {
	passes := snap.Passes
	if passes == nil {
		passes = []model.SeasonPass{}
	}
	raw, err := json.Marshal(passes)
	if err != nil {
		return fmt.Errorf("encoding season passes: %w", err)
	}
	if err := s.kv.Set(ctx, KeySeasonPasses, string(raw)); err != nil {
		return err
	}

	if snap.ActiveID == "" {
		err = s.kv.Remove(ctx, KeyActivePassID)
	} else {
		err = s.kv.Set(ctx, KeyActivePassID, snap.ActiveID)
	}
	if err != nil {
		return err
	}

	if snap.DataImportedRaw == "" {
		err = s.kv.Remove(ctx, KeyDataImported)
	} else {
		err = s.kv.Set(ctx, KeyDataImported, snap.DataImportedRaw)
	}
	if err != nil {
		return err
	}

	if len(snap.AppTheme) == 0 {
		err = s.kv.Remove(ctx, KeyAppTheme)
	} else {
		var theme []byte
		if theme, err = json.Marshal(snap.AppTheme); err == nil {
			err = s.kv.Set(ctx, KeyAppTheme, string(theme))
		}
	}
	if err != nil {
		return err
	}

	d := backup.New(passes, snap.ActiveID, snap.DataImportedRaw, s.now())
	d.AppTheme = snap.AppTheme
	master, err := d.JSON()
	if err != nil {
		return fmt.Errorf("encoding master backup: %w", err)
	}
	return s.kv.Set(ctx, KeyMasterBackup, string(master))
}

// Load reads the persisted snapshot. When season_passes is unreadable,
// missing or empty, the master backup written alongside it is used instead.
func (s *Store) Load(ctx context.Context) (LoadResult, error) {
	var res LoadResult

	activeID, _, err := s.kv.Get(ctx, KeyActivePassID)
	if err != nil {
		return res, err
	}
	imported, _, err := s.kv.Get(ctx, KeyDataImported)
	if err != nil {
		return res, err
	}
	res.ActiveID = activeID
	res.DataImportedRaw = imported
	if theme, ok, err := s.kv.Get(ctx, KeyAppTheme); err != nil {
		return res, err
	} else if ok {
		if err := json.Unmarshal([]byte(theme), &res.AppTheme); err != nil {
			s.logger.Warn("App theme unreadable, ignoring", "error", err)
			res.AppTheme = nil
		}
	}

	raw, ok, err := s.kv.Get(ctx, KeySeasonPasses)
	if err != nil {
		return res, err
	}
	if ok {
		var passes []model.SeasonPass
		if jsonErr := json.Unmarshal([]byte(raw), &passes); jsonErr != nil {
			s.logger.Warn("Season passes unreadable, trying master backup", "error", jsonErr)
			d, err := s.loadMaster(ctx)
			if err != nil {
				return res, fmt.Errorf("season passes unreadable: %w", err)
			}
			if d == nil {
				return res, errors.New("season passes unreadable and no master backup")
			}
			return recovered(d), nil
		}
		if len(passes) > 0 {
			res.Passes = passes
			return res, nil
		}
	}

	// Nothing usable in season_passes; an earlier save may have been cut
	// short after the master backup landed.
	d, err := s.loadMaster(ctx)
	if err != nil {
		s.logger.Warn("Master backup unreadable", "error", err)
		return res, nil
	}
	if d == nil || len(d.SeasonPasses) == 0 {
		return res, nil
	}
	s.logger.Warn("Season passes empty, restored from master backup", "passes", len(d.SeasonPasses))
	return recovered(d), nil
}

// loadMaster returns nil when no master backup is stored.
func (s *Store) loadMaster(ctx context.Context) (*backup.Data, error) {
	raw, ok, err := s.kv.Get(ctx, KeyMasterBackup)
	if err != nil || !ok {
		return nil, err
	}
	d, err := backup.DecodeJSON([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("master backup invalid: %w", err)
	}
	return d, nil
}

func recovered(d *backup.Data) LoadResult {
	return LoadResult{
		Snapshot: Snapshot{
			Passes:          d.SeasonPasses,
			ActiveID:        d.ActiveSeasonPassID,
			DataImportedRaw: d.DataImportedRaw,
			AppTheme:        d.AppTheme,
		},
		Recovered: true,
	}
}

// --------------------------------------------------------------------------
// Cloud sync bookkeeping
// --------------------------------------------------------------------------

// LastSyncedAt is the server timestamp of the last successful push or pull.
func (s *Store) LastSyncedAt(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyLastSyncedAt)
	return v, err
}

func (s *Store) SetLastSyncedAt(ctx context.Context, ts string) error {
	return s.kv.Set(ctx, KeyLastSyncedAt, ts)
}

func (s *Store) SyncKey(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeySyncKey)
	return v, err
}

// SetSyncKey stores key without surrounding whitespace, which a pasted key
// often carries and which would hash to a different server id.
func (s *Store) SetSyncKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.kv.Remove(ctx, KeySyncKey)
	}
	return s.kv.Set(ctx, KeySyncKey, key)
}

// SyncPrefs are the user's automatic sync toggles.
type SyncPrefs struct {
	AutoUpload   bool
	AutoDownload bool
}

func (s *Store) SyncPrefs(ctx context.Context) (SyncPrefs, error) {
	var p SyncPrefs
	up, err := s.boolKey(ctx, KeyAutoUpload)
	if err != nil {
		return p, err
	}
	down, err := s.boolKey(ctx, KeyAutoDownload)
	if err != nil {
		return p, err
	}
	return SyncPrefs{AutoUpload: up, AutoDownload: down}, nil
}

func (s *Store) SetSyncPrefs(ctx context.Context, p SyncPrefs) error {
	if err := s.kv.Set(ctx, KeyAutoUpload, strconv.FormatBool(p.AutoUpload)); err != nil {
		return err
	}
	return s.kv.Set(ctx, KeyAutoDownload, strconv.FormatBool(p.AutoDownload))
}

func (s *Store) boolKey(ctx context.Context, key string) (bool, error) {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	b, _ := strconv.ParseBool(v)
	return b, nil
}
