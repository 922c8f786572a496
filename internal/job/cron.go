// Package job runs the gateway's periodic housekeeping.
package job

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule is used when no schedule is configured.
const DefaultPruneSchedule = "@every 5m"

// Pruner drops expired state and reports how much it removed.
type Pruner interface {
	Prune() int
}

// StartPruneJob prunes p on schedule until the returned cron is stopped.
func StartPruneJob(p Pruner, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { runPrune(p) }); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}

func runPrune(p Pruner) {
	if n := p.Prune(); n > 0 {
		log.Printf("[Cron] pruned %d expired speculations", n)
	}
}

// ValidSchedule reports whether schedule parses as a standard cron spec or
// descriptor such as "@every 5m".
func ValidSchedule(schedule string) error {
	_, err := cron.ParseStandard(schedule)
	return err
}
