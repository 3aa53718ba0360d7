// Package passes owns the in-memory season pass model. Every mutation goes
// through Manager, which persists the result and notifies subscribers.
package passes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/backup"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/seats"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/stats"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/storage"
)

var (
	ErrPassNotFound     = errors.New("season pass not found")
	ErrNoActivePass     = errors.New("no active season pass")
	ErrSeatPairNotFound = errors.New("seat pair not found")
	ErrGameNotFound     = errors.New("game not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrUnknownLeague    = errors.New("unknown league")
)

// Persister is the slice of storage.Store the manager needs.
type Persister interface {
	Load(ctx context.Context) (storage.LoadResult, error)
	Save(ctx context.Context, snap storage.Snapshot) error
	SaveAsync(snap storage.Snapshot) <-chan error
}

// Manager guards the model. Readers get deep copies; no caller ever holds a
// reference into the live state.
type Manager struct {
	store    Persister
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	newID    func() string

	mu              sync.RWMutex
	passes          []model.SeasonPass
	activeID        string
	dataImportedRaw string
	appTheme        map[string]string

	subMu sync.Mutex
	subs  map[int]chan struct{}
	next  int
}

func NewManager(store Persister, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		subs:     make(map[int]chan struct{}),
	}
}

// Load replaces the in-memory model with what the store holds.
func (m *Manager) Load(ctx context.Context) error {
	res, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading season passes: %w", err)
	}
	if res.Recovered {
		m.logger.Warn("Season passes restored from master backup", "passes", len(res.Passes))
	}

	m.mu.Lock()
	m.passes = res.Passes
	m.activeID = res.ActiveID
	m.dataImportedRaw = res.DataImportedRaw
	m.appTheme = res.AppTheme
	m.fixActiveLocked()
	m.mu.Unlock()
	return nil
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// Snapshot returns a deep copy of the persisted state.
func (m *Manager) Snapshot() storage.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Backup builds a fresh backup envelope of the current state.
func (m *Manager) Backup() *backup.Data {
	snap := m.Snapshot()
	d := backup.New(snap.Passes, snap.ActiveID, snap.DataImportedRaw, m.now())
	d.AppTheme = snap.AppTheme
	return d
}

// Passes returns copies of every pass.
func (m *Manager) Passes() []model.SeasonPass {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.ClonePasses(m.passes)
}

// ActiveID is empty when there are no passes.
func (m *Manager) ActiveID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// ActivePass returns a copy of the active pass.
func (m *Manager) ActivePass() (model.SeasonPass, error) {
	return m.Pass("")
}

// Pass returns a copy of the pass with id, or of the active pass when id is
// empty.
func (m *Manager) Pass(id string) (model.SeasonPass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, err := m.indexLocked(id)
	if err != nil {
		return model.SeasonPass{}, err
	}
	return m.passes[i].Clone(), nil
}

// Stats computes the headline figures for a pass ("" for the active one).
func (m *Manager) Stats(id string) (stats.Stats, error) {
	p, err := m.Pass(id)
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Calculate(&p), nil
}

// --------------------------------------------------------------------------
// Whole-model replacement
// --------------------------------------------------------------------------

// Replace swaps in a restored backup. The new state is durably saved before
// it becomes visible, and subscribers are not notified: a restore is not a
// local edit and must not trigger an upload of what was just downloaded.
func (m *Manager) Replace(ctx context.Context, d *backup.Data) error {
	if d == nil {
		return errors.New("replace: nil backup")
	}
	snap := storage.Snapshot{
		Passes:          model.ClonePasses(d.SeasonPasses),
		ActiveID:        d.ActiveSeasonPassID,
		DataImportedRaw: d.DataImportedRaw,
		AppTheme:        maps.Clone(d.AppTheme),
	}
	if snap.Passes == nil {
		snap.Passes = []model.SeasonPass{}
	}
	if model.FindPass(snap.Passes, snap.ActiveID) < 0 {
		snap.ActiveID = ""
		if len(snap.Passes) > 0 {
			snap.ActiveID = snap.Passes[0].ID
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving restored backup: %w", err)
	}
	m.passes = snap.Passes
	m.activeID = snap.ActiveID
	m.dataImportedRaw = snap.DataImportedRaw
	m.appTheme = snap.AppTheme
	m.logger.Info("Season passes replaced", "passes", len(snap.Passes), "active", snap.ActiveID)
	return nil
}

// --------------------------------------------------------------------------
// Passes
// --------------------------------------------------------------------------

// PassInput describes a new season pass.
type PassInput struct {
	LeagueID           string `validate:"required"`
	TeamID             string `validate:"required"`
	TeamName           string `validate:"required"`
	TeamAbbreviation   string
	TeamLogoURL        string
	TeamPrimaryColor   string
	TeamSecondaryColor string
	SeasonLabel        string `validate:"required"`
}

// CreatePass adds a pass and makes it active.
func (m *Manager) CreatePass(ctx context.Context, in PassInput) (model.SeasonPass, error) {
	if err := m.validate.Struct(in); err != nil {
		return model.SeasonPass{}, fmt.Errorf("invalid season pass: %w", err)
	}
	league, ok := config.LookupLeague(in.LeagueID)
	if !ok {
		return model.SeasonPass{}, fmt.Errorf("%w: %s", ErrUnknownLeague, in.LeagueID)
	}

	p := model.SeasonPass{
		ID:                 m.newID(),
		LeagueID:           league.ID,
		TeamID:             in.TeamID,
		TeamName:           in.TeamName,
		TeamAbbreviation:   in.TeamAbbreviation,
		TeamLogoURL:        in.TeamLogoURL,
		TeamPrimaryColor:   in.TeamPrimaryColor,
		TeamSecondaryColor: in.TeamSecondaryColor,
		SeasonLabel:        in.SeasonLabel,
		SeatPairs:          []model.SeatPair{},
		SalesData:          model.SalesData{},
		Games:              []model.Game{},
		Events:             []model.Event{},
		CreatedAtISO:       model.FormatISO(m.now()),
	}

	m.mu.Lock()
	m.passes = append(m.passes, p)
	m.activeID = p.ID
	m.commitLocked()
	m.mu.Unlock()

	m.logger.Info("Season pass created", "id", p.ID, "team", p.TeamName, "season", p.SeasonLabel)
	return p.Clone(), nil
}

// DeletePass removes a pass. If it was active, the first remaining pass
// becomes active.
func (m *Manager) DeletePass(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := model.FindPass(m.passes, id)
	if i < 0 {
		return ErrPassNotFound
	}
	m.passes = append(m.passes[:i:i], m.passes[i+1:]...)
	m.fixActiveLocked()
	m.commitLocked()
	return nil
}

// SwitchPass makes id the active pass.
func (m *Manager) SwitchPass(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if model.FindPass(m.passes, id) < 0 {
		return ErrPassNotFound
	}
	m.activeID = id
	m.commitLocked()
	return nil
}

// --------------------------------------------------------------------------
// Seat pairs
// --------------------------------------------------------------------------

// AddSeatPair adds a seat pair to a pass. An empty ID is generated.
func (m *Manager) AddSeatPair(ctx context.Context, passID string, sp model.SeatPair) (model.SeatPair, error) {
	sp.Section = strings.TrimSpace(sp.Section)
	sp.Row = strings.TrimSpace(sp.Row)
	sp.Seats = strings.TrimSpace(sp.Seats)
	if sp.Section == "" || sp.Seats == "" {
		return model.SeatPair{}, errors.New("seat pair needs a section and seats")
	}
	if sp.SeasonCost < 0 {
		return model.SeatPair{}, errors.New("season cost cannot be negative")
	}
	if sp.ID == "" {
		sp.ID = m.newID()
	}
	for _, w := range sp.Warnings() {
		m.logger.Warn("Seat pair data quality", "pair", sp.ID, "warning", w)
	}

	err := m.mutate(passID, func(p *model.SeasonPass) error {
		if _, exists := p.SeatPair(sp.ID); exists {
			return fmt.Errorf("seat pair %q already exists", sp.ID)
		}
		p.SeatPairs = append(p.SeatPairs, sp)
		return nil
	})
	return sp, err
}

// RemoveSeatPair drops a pair. Sales recorded against it stay in the pass
// and are reported as orphans.
func (m *Manager) RemoveSeatPair(ctx context.Context, passID, pairID string) error {
	return m.mutate(passID, func(p *model.SeasonPass) error {
		for i := range p.SeatPairs {
			if p.SeatPairs[i].ID == pairID {
				p.SeatPairs = append(p.SeatPairs[:i:i], p.SeatPairs[i+1:]...)
				return nil
			}
		}
		return ErrSeatPairNotFound
	})
}

// --------------------------------------------------------------------------
// Sales
// --------------------------------------------------------------------------

// SaleInput records one seat pair sold for one game.
type SaleInput struct {
	GameID        string  `validate:"required"`
	PairID        string  `validate:"required"`
	Price         float64 `validate:"gte=0"`
	PaymentStatus model.PaymentStatus
	SoldDate      string
}

// AddSale records a sale, replacing any earlier sale of the same pair for
// the same game. The pair must exist on the pass.
func (m *Manager) AddSale(ctx context.Context, passID string, in SaleInput) (model.SaleRecord, error) {
	if err := m.validate.Struct(in); err != nil {
		return model.SaleRecord{}, fmt.Errorf("invalid sale: %w", err)
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = model.PaymentPending
	}
	if !in.PaymentStatus.Valid() {
		return model.SaleRecord{}, fmt.Errorf("invalid payment status %q", in.PaymentStatus)
	}
	if in.SoldDate == "" {
		in.SoldDate = model.FormatISO(m.now())
	}

	var sale model.SaleRecord
	err := m.mutate(passID, func(p *model.SeasonPass) error {
		pair, ok := p.SeatPair(in.PairID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSeatPairNotFound, in.PairID)
		}
		game, ok := p.Game(in.GameID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrGameNotFound, in.GameID)
		}

		count := seats.ParseCount(pair.Seats)
		sale = model.SaleRecord{
			ID:            in.GameID + "_" + in.PairID,
			GameID:        in.GameID,
			PairID:        in.PairID,
			Section:       pair.Section,
			Row:           pair.Row,
			Seats:         pair.Seats,
			SeatCount:     &count,
			OpponentLogo:  game.OpponentLogo,
			Price:         in.Price,
			PaymentStatus: in.PaymentStatus,
			SoldDate:      in.SoldDate,
		}
		if p.SalesData == nil {
			p.SalesData = model.SalesData{}
		}
		if p.SalesData[in.GameID] == nil {
			p.SalesData[in.GameID] = map[string]model.SaleRecord{}
		}
		p.SalesData[in.GameID][in.PairID] = sale
		return nil
	})
	return sale, err
}

// RemoveSale deletes the sale of a pair for a game.
func (m *Manager) RemoveSale(ctx context.Context, passID, gameID, pairID string) error {
	return m.mutate(passID, func(p *model.SeasonPass) error {
		byPair, ok := p.SalesData[gameID]
		if !ok {
			return ErrSaleNotFound
		}
		if _, ok := byPair[pairID]; !ok {
			return ErrSaleNotFound
		}
		delete(byPair, pairID)
		if len(byPair) == 0 {
			delete(p.SalesData, gameID)
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Schedule and events
// --------------------------------------------------------------------------

// SetGames replaces a pass's schedule. Sales keep their game ids even if a
// game disappears.
func (m *Manager) SetGames(ctx context.Context, passID string, games []model.Game) error {
	if games == nil {
		games = []model.Game{}
	}
	return m.mutate(passID, func(p *model.SeasonPass) error {
		p.Games = append([]model.Game(nil), games...)
		return nil
	})
}

// AddEvent records a non-game event. An empty ID is generated.
func (m *Manager) AddEvent(ctx context.Context, passID string, ev model.Event) (model.Event, error) {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Name == "" {
		return model.Event{}, errors.New("event needs a name")
	}
	if ev.ID == "" {
		ev.ID = m.newID()
	}
	if ev.Status == "" {
		ev.Status = model.EventPending
		if ev.Sold != nil {
			ev.Status = model.EventSold
		}
	}
	err := m.mutate(passID, func(p *model.SeasonPass) error {
		p.Events = append(p.Events, ev)
		return nil
	})
	return ev, err
}

func (m *Manager) RemoveEvent(ctx context.Context, passID, eventID string) error {
	return m.mutate(passID, func(p *model.SeasonPass) error {
		for i := range p.Events {
			if p.Events[i].ID == eventID {
				p.Events = append(p.Events[:i:i], p.Events[i+1:]...)
				return nil
			}
		}
		return ErrEventNotFound
	})
}

// --------------------------------------------------------------------------
// Change notification
// --------------------------------------------------------------------------

// Subscribe returns a channel that receives a value after local edits.
// Notifications coalesce: a slow reader sees at least one value after the
// latest edit. The returned func unsubscribes.
func (m *Manager) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.subMu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// --------------------------------------------------------------------------
// Internals
// --------------------------------------------------------------------------

// mutate applies fn to a copy of the pass and commits only if fn succeeds.
func (m *Manager) mutate(passID string, fn func(p *model.SeasonPass) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexLocked(passID)
	if err != nil {
		return err
	}
	p := m.passes[i].Clone()
	if err := fn(&p); err != nil {
		return err
	}
	m.passes[i] = p
	m.commitLocked()
	return nil
}

// commitLocked queues a save of the current state and notifies
// subscribers. Caller holds m.mu for writing.
func (m *Manager) commitLocked() {
	done := m.store.SaveAsync(m.snapshotLocked())
	go func() {
		if err := <-done; err != nil {
			m.logger.Error("Saving season passes failed", "error", err)
		}
	}()
	m.notify()
}

func (m *Manager) snapshotLocked() storage.Snapshot {
	return storage.Snapshot{
		Passes:          model.ClonePasses(m.passes),
		ActiveID:        m.activeID,
		DataImportedRaw: m.dataImportedRaw,
		AppTheme:        maps.Clone(m.appTheme),
	}
}

func (m *Manager) indexLocked(id string) (int, error) {
	if id == "" {
		id = m.activeID
		if id == "" {
			return -1, ErrNoActivePass
		}
	}
	i := model.FindPass(m.passes, id)
	if i < 0 {
		return -1, ErrPassNotFound
	}
	return i, nil
}

// fixActiveLocked points activeID at an existing pass, or clears it.
func (m *Manager) fixActiveLocked() {
	if model.FindPass(m.passes, m.activeID) >= 0 {
		return
	}
	m.activeID = ""
	if len(m.passes) > 0 {
		m.activeID = m.passes[0].ID
	}
}
