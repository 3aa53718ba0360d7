package passes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/backup"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/storage"
)

var fixedNow = time.Date(2025, 10, 7, 23, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	store := storage.NewStore(storage.NewMemoryKV(), nil)
	t.Cleanup(func() { store.Close() })

	m := NewManager(store, nil)
	m.now = func() time.Time { return fixedNow }
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return m, store
}

func createPanthers(t *testing.T, m *Manager) model.SeasonPass {
	t.Helper()
	p, err := m.CreatePass(context.Background(), PassInput{
		LeagueID:         "NHL",
		TeamID:           "fla",
		TeamName:         "Florida Panthers",
		TeamAbbreviation: "FLA",
		SeasonLabel:      "2025-2026",
	})
	require.NoError(t, err)
	return p
}

func TestCreatePassBecomesActive(t *testing.T) {
	m, _ := newTestManager(t)

	p := createPanthers(t, m)
	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, "nhl", p.LeagueID)
	assert.Equal(t, "2025-10-07T23:00:00.000Z", p.CreatedAtISO)
	assert.NotNil(t, p.SalesData)
	assert.Equal(t, p.ID, m.ActiveID())

	second, err := m.CreatePass(context.Background(), PassInput{
		LeagueID: "nba", TeamID: "mia", TeamName: "Miami Heat", SeasonLabel: "2025-2026",
	})
	require.NoError(t, err)
	assert.Equal(t, second.ID, m.ActiveID())
	assert.Len(t, m.Passes(), 2)
}

func TestCreatePassValidation(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.CreatePass(context.Background(), PassInput{LeagueID: "nhl", TeamID: "fla"})
	assert.Error(t, err)

	_, err = m.CreatePass(context.Background(), PassInput{
		LeagueID: "cricket", TeamID: "x", TeamName: "X", SeasonLabel: "2025",
	})
	assert.ErrorIs(t, err, ErrUnknownLeague)
	assert.Empty(t, m.Passes())
}

func TestDeleteAndSwitchPass(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first := createPanthers(t, m)
	second := createPanthers(t, m)
	require.Equal(t, second.ID, m.ActiveID())

	require.NoError(t, m.SwitchPass(ctx, first.ID))
	assert.Equal(t, first.ID, m.ActiveID())
	assert.ErrorIs(t, m.SwitchPass(ctx, "missing"), ErrPassNotFound)

	require.NoError(t, m.DeletePass(ctx, first.ID))
	assert.Equal(t, second.ID, m.ActiveID())

	require.NoError(t, m.DeletePass(ctx, second.ID))
	assert.Equal(t, "", m.ActiveID())
	_, err := m.ActivePass()
	assert.ErrorIs(t, err, ErrNoActivePass)
}

func TestSalesRequireKnownSeatPair(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	createPanthers(t, m)

	pair, err := m.AddSeatPair(ctx, "", model.SeatPair{Section: "101", Row: "5", Seats: "3-4", SeasonCost: 4000})
	require.NoError(t, err)
	require.NoError(t, m.SetGames(ctx, "", []model.Game{{ID: "g1", Opponent: "Boston Bruins", OpponentLogo: "bos.png"}}))

	_, err = m.AddSale(ctx, "", SaleInput{GameID: "g1", PairID: "nope", Price: 200})
	assert.ErrorIs(t, err, ErrSeatPairNotFound)
	_, err = m.AddSale(ctx, "", SaleInput{GameID: "g9", PairID: pair.ID, Price: 200})
	assert.ErrorIs(t, err, ErrGameNotFound)

	sale, err := m.AddSale(ctx, "", SaleInput{GameID: "g1", PairID: pair.ID, Price: 250})
	require.NoError(t, err)
	assert.Equal(t, "g1_"+pair.ID, sale.ID)
	assert.Equal(t, "101", sale.Section)
	assert.Equal(t, "3-4", sale.Seats)
	require.NotNil(t, sale.SeatCount)
	assert.Equal(t, 2, *sale.SeatCount)
	assert.Equal(t, model.PaymentPending, sale.PaymentStatus)
	assert.Equal(t, "bos.png", sale.OpponentLogo)

	// A second sale of the same pair for the same game replaces the first.
	_, err = m.AddSale(ctx, "", SaleInput{GameID: "g1", PairID: pair.ID, Price: 300, PaymentStatus: model.PaymentPaid})
	require.NoError(t, err)
	p, err := m.ActivePass()
	require.NoError(t, err)
	require.Len(t, p.Sales(), 1)
	assert.Equal(t, 300.0, p.Sales()[0].Price)

	st, err := m.Stats("")
	require.NoError(t, err)
	assert.Equal(t, 300.0, st.TotalRevenue)
	assert.Equal(t, 2, st.TicketsSold)

	require.NoError(t, m.RemoveSale(ctx, "", "g1", pair.ID))
	assert.ErrorIs(t, m.RemoveSale(ctx, "", "g1", pair.ID), ErrSaleNotFound)
	p, _ = m.ActivePass()
	assert.Empty(t, p.SalesData)
}

func TestAddSaleRejectsBadStatus(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	createPanthers(t, m)
	pair, err := m.AddSeatPair(ctx, "", model.SeatPair{Section: "101", Seats: "1,2"})
	require.NoError(t, err)
	require.NoError(t, m.SetGames(ctx, "", []model.Game{{ID: "g1"}}))

	_, err = m.AddSale(ctx, "", SaleInput{GameID: "g1", PairID: pair.ID, PaymentStatus: "Maybe"})
	assert.Error(t, err)
	_, err = m.AddSale(ctx, "", SaleInput{GameID: "g1", PairID: pair.ID, Price: -5})
	assert.Error(t, err)
}

func TestRemoveSeatPairKeepsSalesAsOrphans(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	createPanthers(t, m)
	pair, err := m.AddSeatPair(ctx, "", model.SeatPair{Section: "101", Seats: "1-2"})
	require.NoError(t, err)
	require.NoError(t, m.SetGames(ctx, "", []model.Game{{ID: "g1"}}))
	_, err = m.AddSale(ctx, "", SaleInput{GameID: "g1", PairID: pair.ID, Price: 100})
	require.NoError(t, err)

	require.NoError(t, m.RemoveSeatPair(ctx, "", pair.ID))
	assert.ErrorIs(t, m.RemoveSeatPair(ctx, "", pair.ID), ErrSeatPairNotFound)

	p, _ := m.ActivePass()
	assert.Empty(t, p.SeatPairs)
	assert.Len(t, p.OrphanSales(), 1)
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	createPanthers(t, m)
	before := m.Snapshot()

	_, err := m.AddSale(ctx, "", SaleInput{GameID: "g1", PairID: "p1", Price: 10})
	require.Error(t, err)
	assert.Equal(t, before, m.Snapshot())
}

func TestEvents(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	createPanthers(t, m)

	sold := 80.0
	ev, err := m.AddEvent(ctx, "", model.Event{Name: "Concert", Date: "2025-11-01", Paid: 50, Sold: &sold})
	require.NoError(t, err)
	assert.Equal(t, model.EventSold, ev.Status)

	_, err = m.AddEvent(ctx, "", model.Event{Name: "  "})
	assert.Error(t, err)

	require.NoError(t, m.RemoveEvent(ctx, "", ev.ID))
	assert.ErrorIs(t, m.RemoveEvent(ctx, "", ev.ID), ErrEventNotFound)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	createPanthers(t, m)
	_, err := m.AddSeatPair(ctx, "", model.SeatPair{Section: "101", Seats: "1-2"})
	require.NoError(t, err)

	snap := m.Snapshot()
	snap.Passes[0].SeatPairs[0].Section = "999"
	snap.Passes[0].TeamName = "changed"

	p, _ := m.ActivePass()
	assert.Equal(t, "101", p.SeatPairs[0].Section)
	assert.Equal(t, "Florida Panthers", p.TeamName)
}

func TestMutationsPersistAndReload(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	p := createPanthers(t, m)
	_, err := m.AddSeatPair(ctx, "", model.SeatPair{Section: "101", Seats: "1-2", SeasonCost: 3000})
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	reloaded := NewManager(store, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, p.ID, reloaded.ActiveID())
	got, err := reloaded.ActivePass()
	require.NoError(t, err)
	assert.Len(t, got.SeatPairs, 1)
}

func TestReplaceIsDurableAndSilent(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	createPanthers(t, m)

	changes, cancel := m.Subscribe()
	defer cancel()

	restored := backup.New([]model.SeasonPass{
		{ID: "a", TeamName: "A"},
		{ID: "b", TeamName: "B"},
	}, "missing", "", fixedNow)
	require.NoError(t, m.Replace(ctx, restored))

	assert.Equal(t, "a", m.ActiveID())
	assert.Len(t, m.Passes(), 2)

	res, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Passes, 2)
	assert.Equal(t, "a", res.ActiveID)

	select {
	case <-changes:
		t.Fatal("replace must not notify subscribers")
	default:
	}
}

func TestReplaceLeavesNoStaleImportFlag(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := storage.NewStore(kv, nil)
	m := NewManager(store, nil)

	passes := []model.SeasonPass{{ID: "a", TeamName: "A"}}
	require.NoError(t, m.Replace(ctx, backup.New(passes, "a", "true", fixedNow)))
	require.NoError(t, m.Replace(ctx, backup.New(passes, "a", "", fixedNow)))
	require.NoError(t, store.Close())

	restarted := storage.NewStore(kv, nil)
	defer restarted.Close()
	reloaded := NewManager(restarted, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Empty(t, reloaded.Snapshot().DataImportedRaw)
	assert.Equal(t, "a", reloaded.ActiveID())
}

func TestRestoredThemeSurvivesRestartAndBackup(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := storage.NewStore(kv, nil)
	m := NewManager(store, nil)

	restored := backup.New([]model.SeasonPass{{ID: "a", TeamName: "A"}}, "a", "", fixedNow)
	restored.AppTheme = map[string]string{"primary": "#041E42"}
	require.NoError(t, m.Replace(ctx, restored))
	assert.Equal(t, restored.AppTheme, m.Backup().AppTheme)
	require.NoError(t, store.Close())

	restarted := storage.NewStore(kv, nil)
	defer restarted.Close()
	reloaded := NewManager(restarted, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, map[string]string{"primary": "#041E42"}, reloaded.Backup().AppTheme)

	// A backup without a theme clears it.
	require.NoError(t, reloaded.Replace(ctx, backup.New(nil, "", "", fixedNow)))
	assert.Nil(t, reloaded.Backup().AppTheme)
}

type failingPersister struct{ *storage.Store }

func (failingPersister) Save(context.Context, storage.Snapshot) error {
	return errors.New("disk full")
}

func TestReplaceFailureKeepsState(t *testing.T) {
	store := storage.NewStore(storage.NewMemoryKV(), nil)
	defer store.Close()
	m := NewManager(failingPersister{store}, nil)
	createPanthers(t, m)
	before := m.Snapshot()

	err := m.Replace(context.Background(), backup.New(nil, "", "", fixedNow))
	require.Error(t, err)
	assert.Equal(t, before, m.Snapshot())
}

func TestSubscribeCoalesces(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	changes, cancel := m.Subscribe()

	createPanthers(t, m)
	_, err := m.AddEvent(ctx, "", model.Event{Name: "Gala"})
	require.NoError(t, err)

	select {
	case <-changes:
	default:
		t.Fatal("expected a change notification")
	}
	select {
	case <-changes:
		t.Fatal("notifications should coalesce")
	default:
	}

	cancel()
	_, err = m.AddEvent(ctx, "", model.Event{Name: "Gala 2"})
	require.NoError(t, err)
	select {
	case <-changes:
		t.Fatal("unsubscribed channel received a notification")
	default:
	}
}
