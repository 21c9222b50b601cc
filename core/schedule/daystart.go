// Package schedule holds the clock driven entry points that seed the rest
// of the queue. They own no domain logic, they only push broker tasks and
// re-push themselves.
package schedule

import (
	"time"

	"github.com/defistack/automate/core/automate"
	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/pkg/logger"
)

const HandlerDayStart = "dayStart"

// DayStart kicks off the daily broker fan-out and reschedules itself for
// the next day
type DayStart struct {
	q      *queue.Queue
	logger logger.Logger
}

func NewDayStart(q *queue.Queue, lg logger.Logger) *DayStart {
	return &DayStart{
		q:      q,
		logger: logger.EnsureLogger(lg),
	}
}

func (d *DayStart) Perform(p *queue.Process) error {
	if _, err := d.q.Push(automate.HandlerTriggerBroker, nil); err != nil {
		return err
	}

	d.logger.Info("day start brokers pushed")
	p.Later(24 * time.Hour)
	return nil
}
