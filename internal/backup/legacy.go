package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/seats"
)

// Legacy recovery contexts predate multi-pass support and always describe
// the one Florida Panthers pass the app originally shipped with.
const (
	LegacyPassID           = "panthers-2025-2026"
	LegacyLeagueID         = "nhl"
	LegacyTeamID           = "fla"
	LegacyTeamName         = "Florida Panthers"
	LegacyTeamAbbreviation = "FLA"
	LegacySeasonLabel      = "2025-2026"
	LegacyPrimaryColor     = "#041E42"
	LegacySecondaryColor   = "#A5ACAF"
)

const (
	legacyConventionCamel = "camelCase"
	legacyConventionSnake = "snake_case"

	legacyFieldSeatPairs    = "seatPairs"
	legacyFieldSalesData    = "salesData"
	legacyFieldSeatPairsAlt = "seat_pairs"
	legacyFieldSalesDataAlt = "sales_data"
	legacyFieldRecoveryCtx  = "recoveryData"
)

// ParseError reports why a recognised legacy shape could not be converted.
// It matches ErrInvalidCode with errors.Is.
type ParseError struct {
	Shape string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("backup: legacy %s context: %v", e.Shape, e.Err)
	}
	return fmt.Sprintf("backup: legacy %s context: %s: %v", e.Shape, e.Field, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrInvalidCode, e.Err} }

// LegacyContext is one of the recovery-context shapes written by older
// emergency backup tools. The concrete types are CamelContext and
// SnakeContext; each knows its own field names.
type LegacyContext interface {
	// Convert builds a canonical backup. outerVersion is the version found
	// beside recoveryData, used when the context has none of its own.
	Convert(outerVersion json.RawMessage, now time.Time) (*Data, error)
	convention() string
}

// legacyCommon holds the fields both conventions spell the same way.
type legacyCommon struct {
	Timestamp          json.RawMessage `json:"timestamp"`
	LastBackup         json.RawMessage `json:"lastBackup"`
	Version            json.RawMessage `json:"version"`
	TeamLogoURL        string          `json:"teamLogoUrl"`
	TeamPrimaryColor   string          `json:"teamPrimaryColor"`
	TeamSecondaryColor string          `json:"teamSecondaryColor"`
	AppConfig          *struct {
		Season string `json:"season"`
	} `json:"appConfig"`
}

type CamelContext struct {
	legacyCommon
	SeatPairs json.RawMessage `json:"seatPairs"`
	SalesData json.RawMessage `json:"salesData"`
}

type SnakeContext struct {
	legacyCommon
	SeatPairs json.RawMessage `json:"seat_pairs"`
	SalesData json.RawMessage `json:"sales_data"`
}

func (CamelContext) convention() string { return legacyConventionCamel }
func (SnakeContext) convention() string { return legacyConventionSnake }

func (c CamelContext) Convert(outerVersion json.RawMessage, now time.Time) (*Data, error) {
	return convertLegacy(c.convention(), c.legacyCommon, c.SeatPairs, c.SalesData, outerVersion, now)
}

func (c SnakeContext) Convert(outerVersion json.RawMessage, now time.Time) (*Data, error) {
	return convertLegacy(c.convention(), c.legacyCommon, c.SeatPairs, c.SalesData, outerVersion, now)
}

// ParseLegacy classifies the recoveryData object by naming convention. A
// context that mixes conventions, or carries neither sales nor seat pairs,
// is rejected rather than guessed at.
func ParseLegacy(rd json.RawMessage) (LegacyContext, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(rd, &keys); err != nil {
		return nil, &ParseError{Shape: "unknown", Field: legacyFieldRecoveryCtx, Err: err}
	}

	camel := present(keys, legacyFieldSeatPairs) || present(keys, legacyFieldSalesData)
	snake := present(keys, legacyFieldSeatPairsAlt) || present(keys, legacyFieldSalesDataAlt)

	switch {
	case camel && snake:
		return nil, &ParseError{Shape: "mixed", Err: fmt.Errorf("both %s and %s field names present", legacyConventionCamel, legacyConventionSnake)}
	case camel:
		var c CamelContext
		if err := json.Unmarshal(rd, &c); err != nil {
			return nil, &ParseError{Shape: legacyConventionCamel, Err: err}
		}
		return c, nil
	case snake:
		var c SnakeContext
		if err := json.Unmarshal(rd, &c); err != nil {
			return nil, &ParseError{Shape: legacyConventionSnake, Err: err}
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: recoveryData has no sales or seat pairs", ErrInvalidCode)
}

type legacySale struct {
	GameID        string  `json:"gameId"`
	PairID        string  `json:"pairId"`
	Section       string  `json:"section"`
	Row           string  `json:"row"`
	Seats         string  `json:"seats"`
	Price         float64 `json:"price"`
	PaymentStatus string  `json:"paymentStatus"`
	SoldDate      string  `json:"soldDate"`
}

func convertLegacy(shape string, common legacyCommon, rawPairs, rawSales, outerVersion json.RawMessage, now time.Time) (*Data, error) {
	pairs := []model.SeatPair{}
	if !isNull(rawPairs) {
		if err := json.Unmarshal(rawPairs, &pairs); err != nil {
			return nil, &ParseError{Shape: shape, Field: "seat pairs", Err: err}
		}
	}

	var sales map[string]map[string]*legacySale
	if !isNull(rawSales) {
		if err := json.Unmarshal(rawSales, &sales); err != nil {
			return nil, &ParseError{Shape: shape, Field: "sales", Err: err}
		}
	}

	salesData := make(model.SalesData, len(sales))
	for gameID, byPair := range sales {
		converted := make(map[string]model.SaleRecord, len(byPair))
		for pairID, sale := range byPair {
			if sale == nil {
				return nil, &ParseError{Shape: shape, Field: "sales", Err: fmt.Errorf("game %s pair %s: null sale", gameID, pairID)}
			}
			converted[pairID] = convertSale(gameID, pairID, sale)
		}
		salesData[gameID] = converted
	}

	createdAt := timestampOf(common.Timestamp)
	if createdAt == "" {
		createdAt = timestampOf(common.LastBackup)
	}
	if createdAt == "" {
		createdAt = model.FormatISO(now)
	}

	version := textOf(common.Version)
	if version == "" {
		version = textOf(outerVersion)
	}
	if version == "" {
		version = Version
	}

	season := LegacySeasonLabel
	if common.AppConfig != nil && common.AppConfig.Season != "" {
		season = common.AppConfig.Season
	}

	pass := model.SeasonPass{
		ID:                 LegacyPassID,
		LeagueID:           LegacyLeagueID,
		TeamID:             LegacyTeamID,
		TeamName:           LegacyTeamName,
		TeamAbbreviation:   LegacyTeamAbbreviation,
		TeamLogoURL:        common.TeamLogoURL,
		TeamPrimaryColor:   orDefault(common.TeamPrimaryColor, LegacyPrimaryColor),
		TeamSecondaryColor: orDefault(common.TeamSecondaryColor, LegacySecondaryColor),
		SeasonLabel:        season,
		SeatPairs:          pairs,
		SalesData:          salesData,
		Games:              ReferenceSchedule(),
		Events:             []model.Event{},
		CreatedAtISO:       createdAt,
	}

	return &Data{
		Version:            version,
		CreatedAtISO:       createdAt,
		ActiveSeasonPassID: LegacyPassID,
		SeasonPasses:       []model.SeasonPass{pass},
	}, nil
}

func convertSale(gameID, pairID string, s *legacySale) model.SaleRecord {
	count := seats.ParseCount(s.Seats)
	return model.SaleRecord{
		ID:            gameID + "_" + pairID,
		GameID:        orDefault(s.GameID, gameID),
		PairID:        orDefault(s.PairID, pairID),
		Section:       s.Section,
		Row:           s.Row,
		Seats:         s.Seats,
		SeatCount:     &count,
		Price:         s.Price,
		PaymentStatus: NormalizePaymentStatus(s.PaymentStatus),
		SoldDate:      s.SoldDate,
	}
}

// NormalizePaymentStatus maps loosely cased statuses onto the three known
// values. Anything unrecognised counts as paid.
func NormalizePaymentStatus(status string) model.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return model.PaymentPending
	case "per seat":
		return model.PaymentPerSeat
	}
	return model.PaymentPaid
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func present(m map[string]json.RawMessage, key string) bool {
	v, ok := m[key]
	return ok && truthy(v)
}

func isNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// timestampOf reads a context timestamp. Some tools stored epoch
// milliseconds instead of ISO text.
func timestampOf(v json.RawMessage) string {
	text := textOf(v)
	if text == "" || isArray(v) || isObject(v) {
		return ""
	}
	if trimmed := bytes.TrimSpace(v); trimmed[0] == '"' {
		return text
	}
	ms, err := strconv.ParseInt(text, 10, 64)
	if err != nil || ms <= 0 {
		return ""
	}
	return model.FormatISO(time.UnixMilli(ms))
}
