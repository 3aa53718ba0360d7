package model

import "slices"

// Clone returns a deep copy of the pass.
func (p SeasonPass) Clone() SeasonPass {
	out := p
	out.SeatPairs = slices.Clone(p.SeatPairs)
	out.Games = slices.Clone(p.Games)
	out.Events = cloneEvents(p.Events)
	out.SalesData = p.SalesData.Clone()
	return out
}

// Clone returns a deep copy of the sales map.
func (s SalesData) Clone() SalesData {
	if s == nil {
		return nil
	}
	out := make(SalesData, len(s))
	for gameID, byPair := range s {
		if byPair == nil {
			out[gameID] = nil
			continue
		}
		inner := make(map[string]SaleRecord, len(byPair))
		for pairID, sale := range byPair {
			if sale.SeatCount != nil {
				n := *sale.SeatCount
				sale.SeatCount = &n
			}
			inner[pairID] = sale
		}
		out[gameID] = inner
	}
	return out
}

// ClonePasses deep-copies a list of passes.
func ClonePasses(passes []SeasonPass) []SeasonPass {
	if passes == nil {
		return nil
	}
	out := make([]SeasonPass, len(passes))
	for i := range passes {
		out[i] = passes[i].Clone()
	}
	return out
}

func cloneEvents(events []Event) []Event {
	out := slices.Clone(events)
	for i := range out {
		if out[i].Sold != nil {
			v := *out[i].Sold
			out[i].Sold = &v
		}
	}
	return out
}
