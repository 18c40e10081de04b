package engine

import "sort"

// ProfitFactorCap replaces an infinite profit factor (a year with no losing
// trades) so reports stay finite and sortable.
const ProfitFactorCap = 999.0

// AnnualStats summarizes one calendar year. Trades are attributed to the
// year of their exit. MaxDrawdownPct follows the snapshot convention: zero at
// a fresh peak, negative below it.
type AnnualStats struct {
	Year           int
	ReturnPct      float64
	MaxDrawdownPct float64
	Trades         int
	Wins           int
	Losses         int
	WinRatePct     float64
	ProfitFactor   float64
	AvgWinPct      float64
	AvgLossPct     float64
	AvgHoldDays    float64
	AvgPositions   float64
}

// Summary aggregates the whole run.
type Summary struct {
	TotalReturnPct float64
	MaxDrawdownPct float64
	Trades         int
	Wins           int
	Losses         int
	WinRatePct     float64
	ProfitFactor   float64
}

// Report is the full performance breakdown.
type Report struct {
	Annual  []AnnualStats
	Overall Summary
}

// AnnualReport breaks the trade log and equity curve down by year.
func AnnualReport(trades []Trade, snaps []Snapshot) Report {
	byYear := make(map[int]*AnnualStats)
	year := func(y int) *AnnualStats {
		st, ok := byYear[y]
		if !ok {
			st = &AnnualStats{Year: y}
			byYear[y] = st
		}
		return st
	}

	type tally struct {
		grossProfit, grossLoss  float64
		winPctSum, lossPctSum   float64
		holdDaysSum             float64
		positionsSum, snapCount int
		startValue, endValue    float64
		startSet                bool
	}
	tallies := make(map[int]*tally)
	acct := func(y int) *tally {
		t, ok := tallies[y]
		if !ok {
			t = &tally{}
			tallies[y] = t
		}
		return t
	}

	for _, tr := range trades {
		y := tr.ExitDate.Year()
		st := year(y)
		t := acct(y)
		st.Trades++
		pnl := tr.PnL.InexactFloat64()
		pnlPct := tr.PnLPct.InexactFloat64()
		if pnl > 0 {
			st.Wins++
			t.grossProfit += pnl
			t.winPctSum += pnlPct
		} else {
			st.Losses++
			t.grossLoss += -pnl
			t.lossPctSum += pnlPct
		}
		if len(tr.EntryDates) > 0 {
			t.holdDaysSum += tr.ExitDate.Sub(tr.EntryDates[0]).Hours() / 24
		}
	}

	prevEnd := 0.0
	for _, snap := range snaps {
		y := snap.Date.Year()
		st := year(y)
		t := acct(y)
		value := snap.Value.InexactFloat64()
		if !t.startSet {
			if prevEnd > 0 {
				t.startValue = prevEnd
			} else {
				t.startValue = value
			}
			t.startSet = true
		}
		t.endValue = value
		prevEnd = value
		t.positionsSum += snap.Positions
		t.snapCount++
		if dd := snap.DrawdownPct.InexactFloat64(); dd < st.MaxDrawdownPct {
			st.MaxDrawdownPct = dd
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	var rep Report
	for _, y := range years {
		st := byYear[y]
		t := tallies[y]
		if st.Trades > 0 {
			st.WinRatePct = float64(st.Wins) / float64(st.Trades) * 100
		}
		st.ProfitFactor = profitFactor(t.grossProfit, t.grossLoss)
		if st.Wins > 0 {
			st.AvgWinPct = t.winPctSum / float64(st.Wins)
		}
		if st.Losses > 0 {
			st.AvgLossPct = t.lossPctSum / float64(st.Losses)
		}
		if st.Trades > 0 {
			st.AvgHoldDays = t.holdDaysSum / float64(st.Trades)
		}
		if t.snapCount > 0 {
			st.AvgPositions = float64(t.positionsSum) / float64(t.snapCount)
		}
		if t.startValue > 0 {
			st.ReturnPct = (t.endValue/t.startValue - 1) * 100
		}
		rep.Annual = append(rep.Annual, *st)
	}

	rep.Overall = overall(trades, snaps)
	return rep
}

func overall(trades []Trade, snaps []Snapshot) Summary {
	var sum Summary
	var grossProfit, grossLoss float64
	for _, tr := range trades {
		sum.Trades++
		pnl := tr.PnL.InexactFloat64()
		if pnl > 0 {
			sum.Wins++
			grossProfit += pnl
		} else {
			sum.Losses++
			grossLoss += -pnl
		}
	}
	if sum.Trades > 0 {
		sum.WinRatePct = float64(sum.Wins) / float64(sum.Trades) * 100
	}
	sum.ProfitFactor = profitFactor(grossProfit, grossLoss)
	if len(snaps) > 0 {
		first := snaps[0].Value.InexactFloat64()
		last := snaps[len(snaps)-1].Value.InexactFloat64()
		if first > 0 {
			sum.TotalReturnPct = (last/first - 1) * 100
		}
		for _, snap := range snaps {
			if dd := snap.DrawdownPct.InexactFloat64(); dd < sum.MaxDrawdownPct {
				sum.MaxDrawdownPct = dd
			}
		}
	}
	return sum
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return ProfitFactorCap
		}
		return 0
	}
	pf := grossProfit / grossLoss
	if pf > ProfitFactorCap {
		return ProfitFactorCap
	}
	return pf
}
