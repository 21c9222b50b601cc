package automate

import (
	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/pkg/logger"
)

// HandlerTriggerBroker is the queue handler name for the fan-out that
// enqueues one evaluation run per active trigger
const HandlerTriggerBroker = "automateTriggerBroker"

// TriggerBroker turns one broker task into one run task per active
// trigger. A push failure for one trigger does not stop the others.
type TriggerBroker struct {
	service *Service
	q       *queue.Queue
	logger  logger.Logger
}

func NewTriggerBroker(service *Service, q *queue.Queue, lg logger.Logger) *TriggerBroker {
	return &TriggerBroker{
		service: service,
		q:       q,
		logger:  logger.EnsureLogger(lg),
	}
}

func (b *TriggerBroker) Perform(p *queue.Process) error {
	triggers, err := b.service.ActiveTriggers()
	if err != nil {
		return err
	}

	enqueued := 0
	for _, trigger := range triggers {
		if _, err := b.q.Push(HandlerTriggerRun, RunParams{ID: trigger.ID}); err != nil {
			b.logger.Error("failed to enqueue trigger run", "trigger_id", trigger.ID, "error", err)
			continue
		}
		enqueued++
	}

	b.logger.Info("trigger broker fan-out", "active", len(triggers), "enqueued", enqueued)
	p.Done()
	return nil
}
