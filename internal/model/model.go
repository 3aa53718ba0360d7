// Package model defines the season pass domain: passes, the seat pairs they
// hold, the games on their schedule and the sales recorded against both.
//
// JSON field names are part of the backup format and must not change.
package model

import (
	"fmt"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/seats"
)

// --------------------------------------------------------------------------
// Enumerations
// --------------------------------------------------------------------------

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPerSeat PaymentStatus = "Per Seat"
	PaymentPaid    PaymentStatus = "Paid"
)

// Valid reports whether s is one of the three known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPerSeat, PaymentPaid:
		return true
	}
	return false
}

type GameType string

const (
	GamePreseason GameType = "Preseason"
	GameRegular   GameType = "Regular"
	GamePlayoff   GameType = "Playoff"
)

type EventStatus string

const (
	EventPending EventStatus = "Pending"
	EventSold    EventStatus = "Sold"
)

// --------------------------------------------------------------------------
// Entities
// --------------------------------------------------------------------------

// SalesData maps gameId -> seatPairId -> sale. The nesting means a seat pair
// can be sold at most once per game.
type SalesData map[string]map[string]SaleRecord

type SeasonPass struct {
	ID                 string     `json:"id"`
	LeagueID           string     `json:"leagueId"`
	TeamID             string     `json:"teamId"`
	TeamName           string     `json:"teamName"`
	TeamAbbreviation   string     `json:"teamAbbreviation,omitempty"`
	TeamLogoURL        string     `json:"teamLogoUrl"`
	TeamPrimaryColor   string     `json:"teamPrimaryColor"`
	TeamSecondaryColor string     `json:"teamSecondaryColor"`
	SeasonLabel        string     `json:"seasonLabel"`
	SeatPairs          []SeatPair `json:"seatPairs"`
	SalesData          SalesData  `json:"salesData"`
	Games              []Game     `json:"games"`
	Events             []Event    `json:"events"`
	CreatedAtISO       string     `json:"createdAtISO"`
}

type SeatPair struct {
	ID         string  `json:"id"`
	Section    string  `json:"section"`
	Row        string  `json:"row"`
	Seats      string  `json:"seats"`
	SeasonCost float64 `json:"seasonCost"`
}

// SeatCount is the number of seats the pair's description names.
func (p SeatPair) SeatCount() int {
	return seats.ParseCount(p.Seats)
}

// Warnings lists data-quality problems that do not block saving.
func (p SeatPair) Warnings() []string {
	var w []string
	if p.SeatCount() == 0 {
		w = append(w, fmt.Sprintf("seat pair %s: seats %q names no seats", p.ID, p.Seats))
	}
	if p.SeasonCost < 0 {
		w = append(w, fmt.Sprintf("seat pair %s: negative season cost", p.ID))
	}
	return w
}

// SaleRecord copies section, row and seats from the seat pair at the time of
// sale so the record stays meaningful if the pair is later edited or removed.
type SaleRecord struct {
	ID            string        `json:"id"`
	GameID        string        `json:"gameId"`
	PairID        string        `json:"pairId"`
	Section       string        `json:"section"`
	Row           string        `json:"row"`
	Seats         string        `json:"seats"`
	SeatCount     *int          `json:"seatCount,omitempty"`
	OpponentLogo  string        `json:"opponentLogo,omitempty"`
	Price         float64       `json:"price"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	SoldDate      string        `json:"soldDate"`
}

type Game struct {
	ID           string     `json:"id"`
	Date         string     `json:"date"`
	Month        string     `json:"month"`
	Day          string     `json:"day"`
	Opponent     string     `json:"opponent"`
	OpponentLogo string     `json:"opponentLogo,omitempty"`
	VenueName    string     `json:"venueName,omitempty"`
	Time         string     `json:"time"`
	TicketStatus string     `json:"ticketStatus"`
	IsPaid       bool       `json:"isPaid"`
	GameNumber   GameNumber `json:"gameNumber,omitempty"`
	Type         GameType   `json:"type"`
	DateTimeISO  string     `json:"dateTimeISO,omitempty"`
}

type Event struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Date   string      `json:"date"`
	Paid   float64     `json:"paid"`
	Sold   *float64    `json:"sold"`
	Status EventStatus `json:"status"`
}

// --------------------------------------------------------------------------
// Lookups
// --------------------------------------------------------------------------

// SeatPair returns the pair with the given id.
func (p *SeasonPass) SeatPair(id string) (SeatPair, bool) {
	for _, sp := range p.SeatPairs {
		if sp.ID == id {
			return sp, true
		}
	}
	return SeatPair{}, false
}

// Game returns the game with the given id.
func (p *SeasonPass) Game(id string) (Game, bool) {
	for _, g := range p.Games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

// Sales returns every sale in the pass, in no particular order.
func (p *SeasonPass) Sales() []SaleRecord {
	var out []SaleRecord
	for _, byPair := range p.SalesData {
		for _, sale := range byPair {
			out = append(out, sale)
		}
	}
	return out
}

// OrphanSales returns sales whose seat pair no longer exists on the pass.
// They are tolerated when read but never produced by a write.
func (p *SeasonPass) OrphanSales() []SaleRecord {
	known := make(map[string]bool, len(p.SeatPairs))
	for _, sp := range p.SeatPairs {
		known[sp.ID] = true
	}
	var out []SaleRecord
	for _, byPair := range p.SalesData {
		for pairID, sale := range byPair {
			if !known[pairID] {
				out = append(out, sale)
			}
		}
	}
	return out
}

// FindPass returns the index of the pass with the given id, or -1.
func FindPass(passes []SeasonPass, id string) int {
	for i := range passes {
		if passes[i].ID == id {
			return i
		}
	}
	return -1
}
