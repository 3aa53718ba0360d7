// Package cloudsync keeps the local season pass model and one remote backup
// per sync key in step. Conflicts are settled per whole snapshot: the side
// with the newer server timestamp wins.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/backup"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/storage"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

const (
	DefaultStatusTTL    = 6 * time.Second
	DefaultPushDelay    = 2 * time.Second
	DefaultPullInterval = 5 * time.Minute

	// MaxStatusRunes bounds StatusMessage.Text.
	MaxStatusRunes = 120
)

var (
	ErrBackupTooLarge = errors.New("backup too large")
	ErrNoSyncKey      = errors.New("no sync key configured")
	ErrNoRemoteBackup = errors.New("no backup on the sync server for this key")
)

// Model is the domain model as seen by the engine.
type Model interface {
	Backup() *backup.Data
	Replace(ctx context.Context, d *backup.Data) error
	Subscribe() (<-chan struct{}, func())
}

// State is the engine's local bookkeeping.
type State interface {
	LastSyncedAt(ctx context.Context) (string, error)
	SetLastSyncedAt(ctx context.Context, ts string) error
	SyncKey(ctx context.Context) (string, error)
	SyncPrefs(ctx context.Context) (storage.SyncPrefs, error)
}

// ConfirmFunc is asked before a pull overwrites local data. Returning false
// keeps local data.
type ConfirmFunc func(ctx context.Context, remote syncproto.Meta) bool

type Options struct {
	Confirm      ConfirmFunc
	StatusTTL    time.Duration
	PushDelay    time.Duration
	PullInterval time.Duration
}

// Action is the outcome of a reconcile.
type Action string

const (
	ActionNone     Action = "none"     // local is authoritative
	ActionNoRemote Action = "noRemote" // nothing on the server yet; next push creates it
	ActionPulled   Action = "pulled"
	ActionDeclined Action = "declined" // remote was newer but the pull was not confirmed
)

// --------------------------------------------------------------------------
// Status surface
// --------------------------------------------------------------------------

type Direction string

const (
	DirectionPush    Direction = "push"
	DirectionPull    Direction = "pull"
	DirectionCheck   Direction = "check"
	DirectionRestore Direction = "restore"
	DirectionExport  Direction = "export"
)

// StatusMessage is a short-lived outcome for a toast.
type StatusMessage struct {
	Text      string    `json:"text"`
	Direction Direction `json:"direction"`
	OK        bool      `json:"ok"`
	At        time.Time `json:"at"`
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

type Engine struct {
	remote Remote
	model  Model
	state  State
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	// opMu serializes push, pull and restore so a pull never lands in the
	// middle of a push of older data.
	opMu sync.Mutex

	statusMu sync.Mutex
	status   StatusMessage
}

func NewEngine(remote Remote, m Model, state State, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = DefaultStatusTTL
	}
	if opts.PushDelay <= 0 {
		opts.PushDelay = DefaultPushDelay
	}
	if opts.PullInterval <= 0 {
		opts.PullInterval = DefaultPullInterval
	}
	return &Engine{
		remote: remote,
		model:  m,
		state:  state,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Status returns the latest outcome while it is fresh.
func (e *Engine) Status() (StatusMessage, bool) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	if e.status.At.IsZero() || e.now().Sub(e.status.At) > e.opts.StatusTTL {
		return StatusMessage{}, false
	}
	return e.status, true
}

func (e *Engine) setStatus(dir Direction, ok bool, text string) {
	msg := StatusMessage{Text: truncateRunes(text, MaxStatusRunes), Direction: dir, OK: ok, At: e.now()}
	e.statusMu.Lock()
	e.status = msg
	e.statusMu.Unlock()
}

func (e *Engine) fail(dir Direction, err error) error {
	e.setStatus(dir, false, failureText(dir, err))
	e.logger.Warn("Cloud sync failed", "direction", dir, "error", err)
	return err
}

// --------------------------------------------------------------------------
// Push
// --------------------------------------------------------------------------

// Push uploads the current model and records the server's timestamp as the
// last sync. Oversized backups are rejected before any network call.
func (e *Engine) Push(ctx context.Context) (string, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	key, err := e.key(ctx)
	if err != nil {
		return "", e.fail(DirectionPush, err)
	}

	raw, err := e.model.Backup().JSON()
	if err != nil {
		return "", e.fail(DirectionPush, fmt.Errorf("encoding backup: %w", err))
	}
	if len(raw) > syncproto.MaxBackupBytes {
		return "", e.fail(DirectionPush, fmt.Errorf("%w: %s", ErrBackupTooLarge, syncproto.TooLargeMessage(len(raw))))
	}

	resp, err := e.remote.PutBackup(ctx, key, string(raw))
	if err != nil {
		return "", e.fail(DirectionPush, err)
	}
	if err := e.state.SetLastSyncedAt(ctx, resp.ServerUpdatedAtISO); err != nil {
		return "", e.fail(DirectionPush, fmt.Errorf("recording sync time: %w", err))
	}

	e.setStatus(DirectionPush, true, "Uploaded backup to sync server")
	e.logger.Info("Backup pushed", "size_bytes", len(raw), "server_updated_at", resp.ServerUpdatedAtISO)
	return resp.ServerUpdatedAtISO, nil
}

// --------------------------------------------------------------------------
// Pull and reconcile
// --------------------------------------------------------------------------

// Reconcile compares remote metadata with the last sync and pulls only
// when the remote copy is newer, or when this device never synced. The
// full backup is never fetched otherwise.
func (e *Engine) Reconcile(ctx context.Context) (Action, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	key, err := e.key(ctx)
	if err != nil {
		return ActionNone, e.fail(DirectionCheck, err)
	}
	meta, err := e.remote.GetMeta(ctx, key)
	if err != nil {
		return ActionNone, e.fail(DirectionCheck, err)
	}
	if !meta.Exists {
		e.setStatus(DirectionCheck, true, "No cloud backup yet")
		return ActionNoRemote, nil
	}

	last, err := e.state.LastSyncedAt(ctx)
	if err != nil {
		return ActionNone, e.fail(DirectionCheck, fmt.Errorf("reading last sync time: %w", err))
	}
	if !remoteIsNewer(meta.ServerUpdatedAtISO, last) {
		e.setStatus(DirectionCheck, true, "Up to date")
		return ActionNone, nil
	}

	if e.opts.Confirm != nil && !e.opts.Confirm(ctx, meta) {
		e.setStatus(DirectionCheck, true, "Newer cloud backup available; kept local data")
		return ActionDeclined, nil
	}

	if err := e.pullLocked(ctx, key); err != nil {
		return ActionNone, err
	}
	return ActionPulled, nil
}

// CheckOnLoad is Reconcile under the name used at startup.
func (e *Engine) CheckOnLoad(ctx context.Context) (Action, error) {
	return e.Reconcile(ctx)
}

// Pull downloads the remote backup and replaces the local model with it,
// whatever the timestamps say.
func (e *Engine) Pull(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	key, err := e.key(ctx)
	if err != nil {
		return e.fail(DirectionPull, err)
	}
	return e.pullLocked(ctx, key)
}

// pullLocked replaces local state only after the backup downloaded and
// decoded. Caller holds opMu.
func (e *Engine) pullLocked(ctx context.Context, key string) error {
	b, err := e.remote.GetBackup(ctx, key)
	if err != nil {
		return e.fail(DirectionPull, err)
	}
	if b == nil {
		return e.fail(DirectionPull, ErrNoRemoteBackup)
	}

	d, err := backup.DecodeJSON([]byte(b.BackupJSON))
	if err != nil {
		return e.fail(DirectionPull, err)
	}
	if err := e.model.Replace(ctx, d); err != nil {
		return e.fail(DirectionPull, err)
	}
	if err := e.state.SetLastSyncedAt(ctx, b.ServerUpdatedAtISO); err != nil {
		return e.fail(DirectionPull, fmt.Errorf("recording sync time: %w", err))
	}

	e.setStatus(DirectionPull, true, "Downloaded newer backup from sync server")
	e.logger.Info("Backup pulled", "passes", len(d.SeasonPasses), "server_updated_at", b.ServerUpdatedAtISO)
	return nil
}

// --------------------------------------------------------------------------
// Auto sync
// --------------------------------------------------------------------------

// Run pushes after local edits settle for PushDelay when auto upload is on,
// and reconciles every PullInterval when auto download is on. Preferences
// are re-read each time so toggles apply without a restart. Run returns
// when ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	changes, unsubscribe := e.model.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(e.opts.PullInterval)
	defer ticker.Stop()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-changes:
			if !e.prefs(ctx).AutoUpload {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(e.opts.PushDelay)
			} else {
				timer.Reset(e.opts.PushDelay)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if _, err := e.Push(ctx); err != nil && !errors.Is(err, ErrNoSyncKey) {
				e.logger.Debug("Auto upload failed", "error", err)
			}

		case <-ticker.C:
			if !e.prefs(ctx).AutoDownload {
				continue
			}
			if _, err := e.Reconcile(ctx); err != nil && !errors.Is(err, ErrNoSyncKey) {
				e.logger.Debug("Auto download failed", "error", err)
			}
		}
	}
}

func (e *Engine) prefs(ctx context.Context) storage.SyncPrefs {
	p, err := e.state.SyncPrefs(ctx)
	if err != nil {
		e.logger.Warn("Reading sync preferences failed", "error", err)
	}
	return p
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (e *Engine) key(ctx context.Context) (string, error) {
	key, err := e.state.SyncKey(ctx)
	if err != nil {
		return "", fmt.Errorf("reading sync key: %w", err)
	}
	if key == "" {
		return "", ErrNoSyncKey
	}
	return key, nil
}

// remoteIsNewer reports whether a pull is warranted. A device that never
// synced always pulls; an unreadable timestamp on either side never does.
func remoteIsNewer(remoteISO, lastSyncedISO string) bool {
	if lastSyncedISO == "" {
		return true
	}
	remote, err := model.ParseISO(remoteISO)
	if err != nil {
		return false
	}
	last, err := model.ParseISO(lastSyncedISO)
	if err != nil {
		return false
	}
	return remote.After(last)
}

func failureText(dir Direction, err error) string {
	var rerr *RemoteError
	switch {
	case errors.Is(err, ErrNoSyncKey):
		return "Set a sync key first"
	case errors.Is(err, ErrBackupTooLarge):
		return err.Error()
	case errors.Is(err, ErrNoRemoteBackup):
		return "No cloud backup found for this key"
	case errors.Is(err, backup.ErrInvalidCode):
		if dir == DirectionRestore {
			return "Invalid recovery code"
		}
		return "Cloud backup could not be read"
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Sync %s failed: server unreachable", dir)
	case errors.As(err, &rerr):
		if rerr.Message != "" {
			return fmt.Sprintf("Sync %s failed: %s", dir, rerr.Message)
		}
		return fmt.Sprintf("Sync %s failed: %s", dir, rerr.Code)
	}
	return fmt.Sprintf("Sync %s failed: %v", dir, err)
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
