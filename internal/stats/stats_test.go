package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

func intPtr(n int) *int { return &n }

func scenarioPass() *model.SeasonPass {
	games := make([]model.Game, 3)
	for i := range games {
		games[i] = model.Game{ID: string(rune('1' + i)), Type: model.GameRegular}
	}
	return &model.SeasonPass{
		ID:        "p",
		SeatPairs: []model.SeatPair{{ID: "sp1", Section: "101", Row: "A", Seats: "1-2", SeasonCost: 1000}},
		Games:     games,
		SalesData: model.SalesData{
			"1": {"sp1": {ID: "1_sp1", GameID: "1", PairID: "sp1", Seats: "1-2", SeatCount: intPtr(2), Price: 150, PaymentStatus: model.PaymentPaid, SoldDate: "2025-10-03T12:00:00Z"}},
		},
	}
}

func TestCalculateScenario(t *testing.T) {
	s := Calculate(scenarioPass())

	assert.Equal(t, 150.0, s.TotalRevenue)
	assert.Equal(t, 2, s.TicketsSold)
	assert.Equal(t, 6, s.TotalTickets)
	assert.Equal(t, 75.0, s.AvgPrice)
	assert.InDelta(t, 33.333, s.SoldRate, 0.01)
	assert.Equal(t, 1000.0, s.TotalSeasonCost)
	assert.Equal(t, -850.0, s.NetProfit)
	assert.Zero(t, s.PendingPayments)
}

func TestCalculateNilAndEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, Calculate(nil))

	s := Calculate(&model.SeasonPass{SeatPairs: []model.SeatPair{{ID: "a", Seats: "5-6"}}})
	assert.Equal(t, DefaultGameCount*2, s.TotalTickets)
	assert.Zero(t, s.AvgPrice)
	assert.Zero(t, s.SoldRate)
}

func TestCalculatePendingAndFallbackSeats(t *testing.T) {
	p := scenarioPass()
	p.SalesData["2"] = map[string]model.SaleRecord{
		"sp1": {ID: "2_sp1", Seats: "GA", Price: 50, PaymentStatus: model.PaymentPending},
	}
	p.SalesData["3"] = map[string]model.SaleRecord{
		"gone": {ID: "3_gone", Seats: "7", SeatCount: intPtr(0), Price: 20, PaymentStatus: model.PaymentPerSeat},
	}

	s := Calculate(p)
	assert.Equal(t, 220.0, s.TotalRevenue)
	assert.Equal(t, 2+2+1, s.TicketsSold)
	assert.Equal(t, 1, s.PendingPayments)
	assert.Equal(t, 2, s.PendingSeats)
}

func TestMonthly(t *testing.T) {
	p := scenarioPass()
	p.SalesData["2"] = map[string]model.SaleRecord{
		"sp1": {Price: 60, SoldDate: "2025-10-20"},
	}
	p.SalesData["3"] = map[string]model.SaleRecord{
		"sp1": {Price: 99, SoldDate: "2025-07-01"},
	}

	months := Monthly(p)
	require.Len(t, months, 8)
	assert.Equal(t, "Sep", months[0].Month)
	assert.Equal(t, MonthlyRevenue{Month: "Oct", Revenue: 210}, months[1])
	assert.Equal(t, "Apr", months[7].Month)
}

func TestBalances(t *testing.T) {
	b := Balances(scenarioPass())
	require.Len(t, b, 1)
	assert.Equal(t, 150.0, b[0].Revenue)
	assert.Equal(t, 1, b[0].GamesSold)
	assert.Equal(t, 2, b[0].SeatsSold)
	assert.Equal(t, -850.0, b[0].Balance)
}
