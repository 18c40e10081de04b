package engine

import (
	"time"

	"github.com/robfig/cron/v3"
)

// CalendarConfig describes the rebalance schedule. Frequency is either a
// preset ("monthly", "weekly") or a raw five-field cron expression.
type CalendarConfig struct {
	Frequency string    `yaml:"frequency"`
	Start     time.Time `yaml:"start"`
	End       time.Time `yaml:"end"`
}

func cronSpec(frequency string) string {
	switch frequency {
	case "", "monthly":
		return "0 0 1 * *"
	case "weekly":
		return "0 0 * * 1"
	default:
		return frequency
	}
}

// RebalanceDates enumerates every schedule tick in [Start, End]. Start itself
// is included when it lands on a tick.
func RebalanceDates(cfg CalendarConfig) ([]time.Time, error) {
	if cfg.End.Before(cfg.Start) {
		return nil, ConfigError{Field: "calendar.end", Reason: "before start"}
	}
	sched, err := cron.ParseStandard(cronSpec(cfg.Frequency))
	if err != nil {
		return nil, ConfigError{Field: "calendar.frequency", Reason: err.Error()}
	}
	var dates []time.Time
	// Next is strictly-after, so back off one second to keep a Start that
	// sits exactly on a tick.
	cursor := cfg.Start.Add(-time.Second)
	for {
		cursor = sched.Next(cursor)
		if cursor.IsZero() || cursor.After(cfg.End) {
			return dates, nil
		}
		dates = append(dates, cursor)
	}
}
