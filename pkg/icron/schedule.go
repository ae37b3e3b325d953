package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Parser accepts the standard five-field syntax plus descriptors such as "@every 6h".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Expression    string
	Next          time.Time
	TimeUntilNext time.Duration
}

// Validate reports whether expr is a schedule Parser understands.
func Validate(expr string) error {
	if _, err := Parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

func GetTriggerInfo(expr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := Parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	next := schedule.Next(refTime)
	return &TriggerInfo{
		Expression:    expr,
		Next:          next,
		TimeUntilNext: next.Sub(refTime),
	}, nil
}
