package backup

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

func samplePasses() []model.SeasonPass {
	n := 2
	sold := 80.0
	return []model.SeasonPass{{
		ID:                 "nhl-fla-1",
		LeagueID:           "nhl",
		TeamID:             "fla",
		TeamName:           "Florida Panthers",
		TeamAbbreviation:   "FLA",
		TeamLogoURL:        "https://a.espncdn.com/i/teamlogos/nhl/500/fla.png",
		TeamPrimaryColor:   "#041E42",
		TeamSecondaryColor: "#C8102E",
		SeasonLabel:        "2025-2026",
		SeatPairs:          []model.SeatPair{{ID: "sp1", Section: "101", Row: "A", Seats: "1-2", SeasonCost: 1000}},
		SalesData: model.SalesData{
			"1": {"sp1": {ID: "1_sp1", GameID: "1", PairID: "sp1", Section: "101", Row: "A", Seats: "1-2", SeatCount: &n, Price: 150, PaymentStatus: model.PaymentPaid, SoldDate: "2025-10-03T12:00:00.000Z"}},
		},
		Games: []model.Game{
			{ID: "1", Date: "Tue, Oct 7", Month: "Oct", Day: "7", Opponent: "Chicago Blackhawks", Time: "5:00 PM", TicketStatus: "Available", GameNumber: "1", Type: model.GameRegular, DateTimeISO: "2025-10-07T21:00:00.000Z"},
			{ID: "p1", Opponent: "Carolina Hurricanes", GameNumber: "p1", Type: model.GamePreseason},
		},
		Events:       []model.Event{{ID: "e1", Name: "Concert", Date: "2025-11-01", Paid: 50, Sold: &sold, Status: model.EventSold}, {ID: "e2", Name: "Open", Status: model.EventPending}},
		CreatedAtISO: "2025-08-01T00:00:00.000Z",
	}}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := New(samplePasses(), "nhl-fla-1", "true", time.Date(2025, 10, 3, 12, 0, 0, 0, time.UTC))

	code, err := Encode(d)
	require.NoError(t, err)
	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")
	assert.NotContains(t, code, "=")

	got, err := Decode(code)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDecodeLiteralJSON(t *testing.T) {
	d := New(samplePasses(), "", "", time.Now())
	raw, err := d.JSON()
	require.NoError(t, err)

	got, err := Decode("  \n" + string(raw) + "\n")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDecodeNumericVersion(t *testing.T) {
	got, err := Decode(`{"version":1,"seasonPasses":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Version)
	assert.Empty(t, got.SeasonPasses)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"not a code",
		"!!!!",
		"AAAAAAAA",
		"{",
		"[]",
		"[1,2,3]",
		"null",
		`{"seasonPasses":[]}`,
		`{"version":"","seasonPasses":[]}`,
		`{"version":"1.0","seasonPasses":{}}`,
		`{"version":"1.0"}`,
		`{"recoveryData":{}}`,
		`{"recoveryData":"x"}`,
		`{"version":"1.0","seasonPasses":[{"id":5}]}`,
		strings.Repeat("A", 4096),
	}
	for _, in := range inputs {
		got, err := Decode(in)
		assert.Nil(t, got, in)
		assert.True(t, errors.Is(err, ErrInvalidCode), "input %q: %v", in, err)
	}
}

func TestDecodeNeverPanicsOnTruncatedCode(t *testing.T) {
	code, err := Encode(New(samplePasses(), "nhl-fla-1", "", time.Now()))
	require.NoError(t, err)

	for i := 0; i < len(code); i += 7 {
		assert.NotPanics(t, func() { _, _ = Decode(code[:i]) })
	}
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(raw)
}

// Codes exported by earlier releases use LZ-String's URI-safe alphabet.
func TestDecodeLZStringBackup(t *testing.T) {
	n := 2
	want := &Data{
		Version:            "1.0",
		CreatedAtISO:       "2026-01-21T06:49:42.466Z",
		ActiveSeasonPassID: "panthers-2025-2026",
		SeasonPasses: []model.SeasonPass{{
			ID:                 "panthers-2025-2026",
			LeagueID:           "nhl",
			TeamID:             "fla",
			TeamName:           "Florida Panthers",
			TeamAbbreviation:   "FLA",
			TeamPrimaryColor:   "#041E42",
			TeamSecondaryColor: "#A5ACAF",
			SeasonLabel:        "2025-2026",
			SeatPairs:          []model.SeatPair{{ID: "pair2", Section: "308", Row: "8", Seats: "1-2", SeasonCost: 3505.32}},
			SalesData: model.SalesData{"1": {"pair2": {
				ID: "1_pair2", GameID: "1", PairID: "pair2", Section: "308", Row: "8", Seats: "1-2",
				SeatCount: &n, Price: 124.2, PaymentStatus: model.PaymentPaid, SoldDate: "2025-10-15T02:13:27.544Z",
			}}},
			Games: []model.Game{{
				ID: "1", Date: "Tue, Oct 7", Month: "Oct", Day: "7", Opponent: "Chicago Blackhawks",
				Time: "5:00 PM", TicketStatus: "Available", GameNumber: "1", Type: model.GameRegular,
			}},
			Events:       []model.Event{},
			CreatedAtISO: "2025-08-01T00:00:00.000Z",
		}},
		DataImportedRaw: "true",
		AppTheme:        map[string]string{"primary": "#041E42", "accent": "#C8102E"},
	}

	got, err := Decode(readFixture(t, "lzstring_backup.txt"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// Recovery contexts were compressed with both LZ-String alphabets.
func TestDecodeLZStringRecoveryContext(t *testing.T) {
	for _, name := range []string{"lzstring_context.txt", "lzstring_context_base64.txt"} {
		t.Run(name, func(t *testing.T) {
			d, err := Decode(readFixture(t, name))
			require.NoError(t, err)

			assert.Equal(t, "2.01", d.Version)
			assert.Equal(t, "2026-01-21T06:49:42.466Z", d.CreatedAtISO)
			assert.Equal(t, LegacyPassID, d.ActiveSeasonPassID)
			require.Len(t, d.SeasonPasses, 1)

			p := d.SeasonPasses[0]
			assert.Equal(t, "2025-2026", p.SeasonLabel)
			assert.Len(t, p.SeatPairs, 2)
			assert.Equal(t, ReferenceSchedule(), p.Games)

			sale := p.SalesData["1"]["pair2"]
			assert.Equal(t, "1_pair2", sale.ID)
			assert.Equal(t, 124.2, sale.Price)
			assert.Equal(t, model.PaymentPaid, sale.PaymentStatus)
			assert.Equal(t, model.PaymentPending, p.SalesData["27"]["pair1"].PaymentStatus)
		})
	}
}

func TestDecodeRejectsDamagedLZStringCode(t *testing.T) {
	code := readFixture(t, "lzstring_backup.txt")
	for _, damaged := range []string{code[:len(code)/2], code[:40] + "$$$$" + code[44:]} {
		got, err := Decode(damaged)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
}

func TestActivePassIDWritesNull(t *testing.T) {
	raw, err := New(nil, "", "", time.Now()).JSON()
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "null", string(fields["activeSeasonPassId"]))

	got, err := DecodeJSON(raw)
	require.NoError(t, err)
	assert.Empty(t, got.ActiveSeasonPassID)

	raw, err = New(samplePasses(), "nhl-fla-1", "", time.Now()).JSON()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, `"nhl-fla-1"`, string(fields["activeSeasonPassId"]))
}

func TestActivePass(t *testing.T) {
	d := New(samplePasses(), "missing", "", time.Now())
	require.NotNil(t, d.ActivePass())
	assert.Equal(t, "nhl-fla-1", d.ActivePass().ID)

	assert.Nil(t, New(nil, "", "", time.Now()).ActivePass())
}
