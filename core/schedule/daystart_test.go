package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistack/automate/core/automate"
	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/core/testutil"
	"github.com/defistack/automate/storage/schema"
)

func TestDayStartPushesBrokerAndReschedules(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()

	q := queue.New(db, testutil.GetLogger())
	r := queue.NewRunner(q, testutil.GetLogger(), nil, &queue.RunnerOption{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
	})

	brokered := make(chan struct{}, 1)
	r.RegisterHandler(HandlerDayStart, NewDayStart(q, testutil.GetLogger()))
	r.RegisterHandler(automate.HandlerTriggerBroker, queue.HandlerFunc(func(p *queue.Process) error {
		brokered <- struct{}{}
		return nil
	}))

	_, err := q.Push(HandlerDayStart, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	select {
	case <-brokered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the broker task")
	}
	cancel()
	require.NoError(t, <-runDone)

	pending, err := q.ListByStatus(schema.TaskPending)
	require.NoError(t, err)
	require.Len(t, pending, 1, "day start re-pushes itself")
	assert.Equal(t, HandlerDayStart, pending[0].Handler)
	assert.True(t, pending[0].StartAt.After(time.Now().Add(23*time.Hour)))
}
