// Package stats computes the revenue and sell-through figures shown for a
// season pass.
package stats

import (
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/seats"
)

// DefaultGameCount is assumed when a pass has no schedule yet.
const DefaultGameCount = 42

// fallbackSaleSeats is counted for a sale whose seats cannot be read.
const fallbackSaleSeats = 2

type Stats struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	TicketsSold     int     `json:"ticketsSold"`
	TotalTickets    int     `json:"totalTickets"`
	AvgPrice        float64 `json:"avgPrice"`
	PendingPayments int     `json:"pendingPayments"`
	PendingSeats    int     `json:"pendingSeats"`
	SoldRate        float64 `json:"soldRate"`
	TotalSeasonCost float64 `json:"totalSeasonCost"`
	NetProfit       float64 `json:"netProfit"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type PairBalance struct {
	PairID     string  `json:"pairId"`
	Section    string  `json:"section"`
	Row        string  `json:"row"`
	Seats      string  `json:"seats"`
	SeasonCost float64 `json:"seasonCost"`
	Revenue    float64 `json:"revenue"`
	GamesSold  int     `json:"gamesSold"`
	SeatsSold  int     `json:"seatsSold"`
	Balance    float64 `json:"balance"`
}

// Calculate returns the headline figures for a pass. A nil pass yields zeros.
// Every sale counts toward tickets sold whatever its payment status.
func Calculate(p *model.SeasonPass) Stats {
	var s Stats
	if p == nil {
		return s
	}

	seatsPerGame := 0
	for _, pair := range p.SeatPairs {
		seatsPerGame += pair.SeatCount()
		s.TotalSeasonCost += pair.SeasonCost
	}

	for _, byPair := range p.SalesData {
		for _, sale := range byPair {
			s.TotalRevenue += sale.Price
			n := SaleSeats(sale)
			s.TicketsSold += n
			if sale.PaymentStatus == model.PaymentPending {
				s.PendingSeats += n
				s.PendingPayments++
			}
		}
	}

	games := len(p.Games)
	if games == 0 {
		games = DefaultGameCount
	}
	s.TotalTickets = games * seatsPerGame

	if s.TicketsSold > 0 {
		s.AvgPrice = s.TotalRevenue / float64(s.TicketsSold)
	}
	if s.TotalTickets > 0 {
		s.SoldRate = float64(s.TicketsSold) / float64(s.TotalTickets) * 100
	}
	s.NetProfit = s.TotalRevenue - s.TotalSeasonCost
	return s
}

// SaleSeats is the number of seats a sale represents: the stored count when
// positive, else the parsed seat description, else a pair of two.
func SaleSeats(sale model.SaleRecord) int {
	if sale.SeatCount != nil && *sale.SeatCount > 0 {
		return *sale.SeatCount
	}
	if n := seats.ParseCount(sale.Seats); n > 0 {
		return n
	}
	return fallbackSaleSeats
}

var seasonMonths = []time.Month{
	time.September, time.October, time.November, time.December,
	time.January, time.February, time.March, time.April,
}

// Monthly buckets revenue by the month each sale was made, September through
// April. Sales made outside that window or with an unreadable date are left
// out.
func Monthly(p *model.SeasonPass) []MonthlyRevenue {
	totals := make(map[time.Month]float64, len(seasonMonths))
	if p != nil {
		for _, byPair := range p.SalesData {
			for _, sale := range byPair {
				sold, ok := parseDate(sale.SoldDate)
				if !ok {
					continue
				}
				totals[sold.Month()] += sale.Price
			}
		}
	}

	out := make([]MonthlyRevenue, 0, len(seasonMonths))
	for _, m := range seasonMonths {
		out = append(out, MonthlyRevenue{Month: m.String()[:3], Revenue: totals[m]})
	}
	return out
}

// Balances reports revenue against season cost for every seat pair.
func Balances(p *model.SeasonPass) []PairBalance {
	if p == nil {
		return nil
	}
	out := make([]PairBalance, 0, len(p.SeatPairs))
	for _, pair := range p.SeatPairs {
		b := PairBalance{
			PairID:     pair.ID,
			Section:    pair.Section,
			Row:        pair.Row,
			Seats:      pair.Seats,
			SeasonCost: pair.SeasonCost,
		}
		for _, byPair := range p.SalesData {
			sale, ok := byPair[pair.ID]
			if !ok {
				continue
			}
			b.Revenue += sale.Price
			b.GamesSold++
			b.SeatsSold += SaleSeats(sale)
		}
		b.Balance = b.Revenue - b.SeasonCost
		out = append(out, b)
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
