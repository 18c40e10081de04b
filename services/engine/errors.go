package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the simulation core. Data-quality failures
// (ErrInsufficientData, ErrDegenerateNormalization) are recoverable at the
// instrument/period boundary; the rest indicate caller bugs or bad
// configuration and abort the run.
var (
	ErrInsufficientData        = errors.New("insufficient data")
	ErrDegenerateNormalization = errors.New("degenerate normalization")
	ErrMissingArgument         = errors.New("missing required argument")
	ErrDuplicatePosition       = errors.New("position already open")
	ErrNoPosition              = errors.New("no open position")
)

// ConfigError reports an invalid configuration value. Fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Skippable reports whether a failure should be recorded as "skip this
// instrument this period" instead of aborting the whole run.
func Skippable(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrDegenerateNormalization)
}
