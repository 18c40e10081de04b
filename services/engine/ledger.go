package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one buy lot inside a position.
type Entry struct {
	Date   time.Time
	Price  decimal.Decimal
	Shares int64
	Tag    string
}

// Position is an open holding in one instrument, possibly built from several
// pyramided lots.
type Position struct {
	Instrument  string
	Entries     []Entry
	TotalShares int64
}

// AvgEntryPrice is the share-weighted average cost of all lots.
func (p *Position) AvgEntryPrice() decimal.Decimal {
	if p.TotalShares == 0 {
		return decimal.Zero
	}
	cost := decimal.Zero
	for _, e := range p.Entries {
		cost = cost.Add(e.Price.Mul(decimal.NewFromInt(e.Shares)))
	}
	return cost.Div(decimal.NewFromInt(p.TotalShares))
}

// Trade is a closed round trip. EntryDates keeps every lot date so pyramided
// positions stay auditable after the close.
type Trade struct {
	Instrument    string
	EntryDates    []time.Time
	ExitDate      time.Time
	AvgEntryPrice decimal.Decimal
	ExitPrice     decimal.Decimal
	Shares        int64
	PnL           decimal.Decimal
	PnLPct        decimal.Decimal
	ExitReason    string
}

// Ledger tracks open positions and the closed trade log. One position per
// instrument; additional buys pyramid onto the existing position.
type Ledger struct {
	positions map[string]*Position
	trades    []Trade
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[string]*Position)}
}

// Open creates a position. A second Open on the same instrument is a
// bookkeeping bug and fails with ErrDuplicatePosition.
func (l *Ledger) Open(instrument string, e Entry) error {
	if _, ok := l.positions[instrument]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, instrument)
	}
	if e.Shares <= 0 {
		return ConfigError{Field: "entry.shares", Reason: "must be positive"}
	}
	if !e.Price.IsPositive() {
		return ConfigError{Field: "entry.price", Reason: "must be positive"}
	}
	l.positions[instrument] = &Position{
		Instrument:  instrument,
		Entries:     []Entry{e},
		TotalShares: e.Shares,
	}
	return nil
}

// Pyramid adds a lot to an existing position.
func (l *Ledger) Pyramid(instrument string, e Entry) error {
	p, ok := l.positions[instrument]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, instrument)
	}
	if e.Shares <= 0 {
		return ConfigError{Field: "entry.shares", Reason: "must be positive"}
	}
	if !e.Price.IsPositive() {
		return ConfigError{Field: "entry.price", Reason: "must be positive"}
	}
	p.Entries = append(p.Entries, e)
	p.TotalShares += e.Shares
	return nil
}

// Close liquidates the whole position at exitPrice and appends the resulting
// trade to the log.
func (l *Ledger) Close(instrument string, date time.Time, exitPrice decimal.Decimal, reason string) (Trade, error) {
	p, ok := l.positions[instrument]
	if !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrNoPosition, instrument)
	}
	avg := p.AvgEntryPrice()
	shares := decimal.NewFromInt(p.TotalShares)
	pnl := exitPrice.Sub(avg).Mul(shares)
	pnlPct := decimal.Zero
	if avg.IsPositive() {
		pnlPct = exitPrice.Div(avg).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	}
	dates := make([]time.Time, len(p.Entries))
	for i, e := range p.Entries {
		dates[i] = e.Date
	}
	t := Trade{
		Instrument:    instrument,
		EntryDates:    dates,
		ExitDate:      date,
		AvgEntryPrice: avg,
		ExitPrice:     exitPrice,
		Shares:        p.TotalShares,
		PnL:           pnl,
		PnLPct:        pnlPct,
		ExitReason:    reason,
	}
	delete(l.positions, instrument)
	l.trades = append(l.trades, t)
	return t, nil
}

// Position returns the open position for instrument, or nil.
func (l *Ledger) Position(instrument string) *Position {
	return l.positions[instrument]
}

// OpenPositions returns open positions sorted by instrument for deterministic
// iteration.
func (l *Ledger) OpenPositions() []*Position {
	out := make([]*Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Trades returns the closed trade log in close order.
func (l *Ledger) Trades() []Trade {
	return l.trades
}
