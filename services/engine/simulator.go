package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SimConfig drives the rotation simulator. Fractions select the top slice of
// the momentum ranking: EntryFraction gates new buys, HoldFraction (>= entry)
// keeps existing positions alive a while longer to cut churn.
type SimConfig struct {
	Calendar       CalendarConfig  `yaml:"calendar"`
	LookbackBars   int             `yaml:"lookback_bars"`
	MinHistoryBars int             `yaml:"min_history_bars"`
	EntryFraction  float64         `yaml:"entry_fraction"`
	HoldFraction   float64         `yaml:"hold_fraction"`
	Allocation     decimal.Decimal `yaml:"allocation"`
	StartingCash   decimal.Decimal `yaml:"starting_cash"`
}

func (c *SimConfig) Validate() error {
	if c.LookbackBars < 1 {
		return ConfigError{Field: "lookback_bars", Reason: "must be >= 1"}
	}
	if c.MinHistoryBars == 0 {
		c.MinHistoryBars = 30
	}
	if c.EntryFraction <= 0 || c.EntryFraction > 1 {
		return ConfigError{Field: "entry_fraction", Reason: "must be in (0, 1]"}
	}
	if c.HoldFraction < c.EntryFraction || c.HoldFraction > 1 {
		return ConfigError{Field: "hold_fraction", Reason: "must be in [entry_fraction, 1]"}
	}
	if !c.Allocation.IsPositive() {
		return ConfigError{Field: "allocation", Reason: "must be positive"}
	}
	if !c.StartingCash.IsPositive() {
		return ConfigError{Field: "starting_cash", Reason: "must be positive"}
	}
	return nil
}

// Snapshot is the portfolio state after one rebalance.
type Snapshot struct {
	Date        time.Time
	Cash        decimal.Decimal
	Invested    decimal.Decimal
	Value       decimal.Decimal
	Peak        decimal.Decimal
	Positions   int
	DrawdownPct decimal.Decimal
}

// SimResult bundles the trade log with the equity curve.
type SimResult struct {
	Trades    []Trade
	Snapshots []Snapshot
}

// Simulator runs the momentum rotation over a universe of instruments.
type Simulator struct {
	cfg SimConfig
	log *zap.Logger
}

func NewSimulator(cfg SimConfig, log *zap.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{cfg: cfg, log: log}, nil
}

type ranked struct {
	symbol string
	score  float64
}

// Run replays the rebalance calendar over bars (per-symbol, ascending by
// timestamp) and returns the trade log and equity curve. Iteration order is
// deterministic for identical inputs.
func (s *Simulator) Run(universe map[string][]Bar) (SimResult, error) {
	dates, err := RebalanceDates(s.cfg.Calendar)
	if err != nil {
		return SimResult{}, err
	}
	if len(dates) == 0 {
		return SimResult{}, fmt.Errorf("%w: no rebalance dates in range", ErrInsufficientData)
	}

	symbols := make([]string, 0, len(universe))
	for sym := range universe {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	ledger := NewLedger()
	cash := s.cfg.StartingCash
	peak := s.cfg.StartingCash
	var snaps []Snapshot

	for _, date := range dates {
		ranking := s.rank(symbols, universe, date)
		entryCut := int(float64(len(ranking)) * s.cfg.EntryFraction)
		holdCut := int(float64(len(ranking)) * s.cfg.HoldFraction)

		entrySet := make(map[string]bool, entryCut)
		holdSet := make(map[string]bool, holdCut)
		for i, r := range ranking {
			if r.score <= 0 {
				continue
			}
			if i < entryCut {
				entrySet[r.symbol] = true
			}
			if i < holdCut {
				holdSet[r.symbol] = true
			}
		}

		// Exits first so freed cash is available for this cycle's buys.
		for _, p := range ledger.OpenPositions() {
			if holdSet[p.Instrument] {
				continue
			}
			price, ok := latestClose(universe[p.Instrument], date)
			if !ok {
				price = p.AvgEntryPrice()
			}
			trade, err := ledger.Close(p.Instrument, date, price, "rank")
			if err != nil {
				return SimResult{}, err
			}
			cash = cash.Add(trade.ExitPrice.Mul(decimal.NewFromInt(trade.Shares)))
		}

		for _, r := range ranking {
			if !entrySet[r.symbol] || ledger.Position(r.symbol) != nil {
				continue
			}
			price, ok := latestClose(universe[r.symbol], date)
			if !ok || !price.IsPositive() {
				continue
			}
			shares := s.cfg.Allocation.Div(price).IntPart()
			if shares < 1 {
				continue
			}
			// No partial-cash buys: the full allocation must be available.
			if cash.LessThan(s.cfg.Allocation) {
				s.log.Debug("buy skipped, insufficient cash",
					zap.String("symbol", r.symbol),
					zap.String("cash", cash.String()))
				continue
			}
			cost := price.Mul(decimal.NewFromInt(shares))
			if err := ledger.Open(r.symbol, Entry{Date: date, Price: price, Shares: shares, Tag: "rank"}); err != nil {
				return SimResult{}, err
			}
			cash = cash.Sub(cost)
		}

		snap := s.snapshot(date, cash, ledger, universe)
		if snap.Value.GreaterThan(peak) {
			peak = snap.Value
		}
		snap.Peak = peak
		snap.DrawdownPct = drawdownPct(snap.Value, peak)
		snaps = append(snaps, snap)
	}

	// Force-liquidate so every entry has a matching trade.
	for _, p := range ledger.OpenPositions() {
		price, ok := latestClose(universe[p.Instrument], s.cfg.Calendar.End)
		if !ok {
			price = p.AvgEntryPrice()
		}
		trade, err := ledger.Close(p.Instrument, s.cfg.Calendar.End, price, "final")
		if err != nil {
			return SimResult{}, err
		}
		cash = cash.Add(trade.ExitPrice.Mul(decimal.NewFromInt(trade.Shares)))
	}
	if cash.GreaterThan(peak) {
		peak = cash
	}
	snaps = append(snaps, Snapshot{
		Date:        s.cfg.Calendar.End,
		Cash:        cash,
		Value:       cash,
		Peak:        peak,
		DrawdownPct: drawdownPct(cash, peak),
	})

	return SimResult{Trades: ledger.Trades(), Snapshots: snaps}, nil
}

// rank scores every symbol as of date and sorts score-descending, symbol
// ascending on ties. Unscorable symbols are skipped.
func (s *Simulator) rank(symbols []string, universe map[string][]Bar, date time.Time) []ranked {
	var ranking []ranked
	for _, sym := range symbols {
		closes := closesAsOf(universe[sym], date)
		score, err := MomentumScore(closes, s.cfg.LookbackBars, s.cfg.MinHistoryBars)
		if err != nil {
			if Skippable(err) {
				continue
			}
			s.log.Warn("score failed", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		ranking = append(ranking, ranked{symbol: sym, score: score})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].score != ranking[j].score {
			return ranking[i].score > ranking[j].score
		}
		return ranking[i].symbol < ranking[j].symbol
	})
	return ranking
}

func (s *Simulator) snapshot(date time.Time, cash decimal.Decimal, ledger *Ledger, universe map[string][]Bar) Snapshot {
	invested := decimal.Zero
	open := ledger.OpenPositions()
	for _, p := range open {
		price, ok := latestClose(universe[p.Instrument], date)
		if !ok {
			price = p.AvgEntryPrice()
		}
		invested = invested.Add(price.Mul(decimal.NewFromInt(p.TotalShares)))
	}
	return Snapshot{
		Date:      date,
		Cash:      cash,
		Invested:  invested,
		Value:     cash.Add(invested),
		Positions: len(open),
	}
}

// drawdownPct is (value - peak) / peak in percent, zero at a fresh peak and
// negative below it.
func drawdownPct(value, peak decimal.Decimal) decimal.Decimal {
	if !peak.IsPositive() {
		return decimal.Zero
	}
	return value.Sub(peak).Div(peak).Mul(decimal.NewFromInt(100))
}

// closesAsOf returns closes of bars at or before asOf.
func closesAsOf(bars []Bar, asOf time.Time) []float64 {
	n := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp.After(asOf) })
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = bars[i].Close
	}
	return out
}

// latestClose returns the close of the last bar at or before asOf.
func latestClose(bars []Bar, asOf time.Time) (decimal.Decimal, bool) {
	n := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp.After(asOf) })
	if n == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(bars[n-1].Close), true
}
