package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameNumberDecodesBothForms(t *testing.T) {
	var games []Game
	err := json.Unmarshal([]byte(`[{"id":"a","gameNumber":7},{"id":"b","gameNumber":"p1"},{"id":"c","gameNumber":"12"},{"id":"d"}]`), &games)
	require.NoError(t, err)

	assert.Equal(t, GameNumber("7"), games[0].GameNumber)
	assert.Equal(t, GameNumber("p1"), games[1].GameNumber)
	assert.Equal(t, 12, games[2].GameNumber.Int())
	assert.Equal(t, GameNumber(""), games[3].GameNumber)
}

func TestGameNumberEncoding(t *testing.T) {
	out, err := json.Marshal(Game{ID: "a", GameNumber: "7", Type: GameRegular})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"gameNumber":7`)

	out, err = json.Marshal(Game{ID: "a", GameNumber: "007"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"gameNumber":"007"`)

	out, err = json.Marshal(Game{ID: "a"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "gameNumber")
}

func TestCloneIsDeep(t *testing.T) {
	n := 2
	sold := 40.0
	p := SeasonPass{
		ID:        "p",
		SeatPairs: []SeatPair{{ID: "sp1", Seats: "1-2"}},
		SalesData: SalesData{"g1": {"sp1": {ID: "g1_sp1", SeatCount: &n, Price: 100}}},
		Events:    []Event{{ID: "e1", Sold: &sold}},
	}

	c := p.Clone()
	c.SeatPairs[0].Seats = "9"
	c.SalesData["g1"]["sp1"] = SaleRecord{ID: "changed"}
	*c.Events[0].Sold = 1

	assert.Equal(t, "1-2", p.SeatPairs[0].Seats)
	assert.Equal(t, "g1_sp1", p.SalesData["g1"]["sp1"].ID)
	assert.Equal(t, 40.0, *p.Events[0].Sold)
}

func TestOrphanSales(t *testing.T) {
	p := SeasonPass{
		SeatPairs: []SeatPair{{ID: "sp1"}},
		SalesData: SalesData{
			"g1": {"sp1": {ID: "g1_sp1"}, "gone": {ID: "g1_gone"}},
		},
	}
	orphans := p.OrphanSales()
	require.Len(t, orphans, 1)
	assert.Equal(t, "g1_gone", orphans[0].ID)
	assert.Len(t, p.Sales(), 2)
}

func TestSeatPairWarnings(t *testing.T) {
	assert.Empty(t, SeatPair{ID: "a", Seats: "1-2"}.Warnings())
	assert.Len(t, SeatPair{ID: "a", Seats: "GA"}.Warnings(), 1)
}
