package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistack/automate/core/testutil"
	"github.com/defistack/automate/model"
	"github.com/defistack/automate/storage/schema"
)

func TestClaimDueReturnsOldestFirst(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	now := time.Now()
	third, err := q.PushAt("handlerA", map[string]string{"n": "3"}, now.Add(-time.Second))
	require.NoError(t, err)
	first, err := q.PushAt("handlerA", map[string]string{"n": "1"}, now.Add(-3*time.Second))
	require.NoError(t, err)
	second, err := q.PushAt("handlerA", map[string]string{"n": "2"}, now.Add(-2*time.Second))
	require.NoError(t, err)

	tasks, err := q.ClaimDue(10, now)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, first, tasks[0].ID)
	assert.Equal(t, second, tasks[1].ID)
	assert.Equal(t, third, tasks[2].ID)
}

func TestClaimDueSkipsFutureTasks(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	now := time.Now()
	_, err := q.PushAt("handlerA", nil, now.Add(time.Hour))
	require.NoError(t, err)
	due, err := q.PushAt("handlerA", nil, now.Add(-time.Minute))
	require.NoError(t, err)

	tasks, err := q.ClaimDue(10, now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, due, tasks[0].ID)

	pending, err := q.CountByStatus(schema.TaskPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestClaimDueDeliversEachTaskOnce(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	_, err := q.Push("handlerA", nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var claimed int
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks, err := q.ClaimDue(1, time.Now())
			assert.NoError(t, err)
			mu.Lock()
			claimed += len(tasks)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claimed, "a pending task must be claimed by exactly one poller")
}

func TestMarkDoneAndMarkError(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	_, err := q.Push("handlerA", nil)
	require.NoError(t, err)
	_, err = q.Push("handlerB", nil)
	require.NoError(t, err)

	tasks, err := q.ClaimDue(2, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	require.NoError(t, q.MarkDone(tasks[0]))
	require.NoError(t, q.MarkError(tasks[1], "upstream timed out"))

	running, err := q.CountByStatus(schema.TaskRunning)
	require.NoError(t, err)
	assert.Equal(t, int64(0), running)

	failed, err := q.ListByStatus(schema.TaskError)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "upstream timed out", failed[0].Error)
}

func TestRequeueBumpsRetries(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	_, err := q.Push("handlerA", map[string]string{"k": "v"})
	require.NoError(t, err)

	tasks, err := q.ClaimDue(1, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NoError(t, q.MarkError(tasks[0], "boom"))

	nextID, err := q.Requeue(tasks[0], time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, tasks[0].ID, nextID)

	next, err := q.ClaimDue(1, time.Now())
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, nextID, next[0].ID)
	assert.Equal(t, 1, next[0].Retries)
	assert.Equal(t, tasks[0].Handler, next[0].Handler)
	assert.JSONEq(t, string(tasks[0].Params), string(next[0].Params))
}

func TestRecoverReturnsRunningToPending(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	_, err := q.Push("handlerA", nil)
	require.NoError(t, err)

	tasks, err := q.ClaimDue(1, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	recovered, err := q.Recover()
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	// the record sits under the pending key, nothing lingers in running
	running, err := q.CountByStatus(schema.TaskRunning)
	require.NoError(t, err)
	assert.Zero(t, running)

	value, err := db.GetKey(schema.TaskQueueKey(schema.TaskPending, tasks[0].StartAt.UnixMilli(), tasks[0].ID))
	require.NoError(t, err)
	repended, err := model.TaskFromJSON(value)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, repended.Status)

	again, err := q.ClaimDue(1, time.Now())
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, tasks[0].ID, again[0].ID)
}

func TestNextDuePeeksEarliestPendingWithoutClaiming(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	next, err := q.NextDue()
	require.NoError(t, err)
	assert.Nil(t, next)

	now := time.Now()
	_, err = q.PushAt("handlerB", nil, now.Add(time.Minute))
	require.NoError(t, err)
	earliest, err := q.PushAt("handlerA", nil, now.Add(-time.Minute))
	require.NoError(t, err)

	next, err = q.NextDue()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, earliest, next.ID)
	assert.Equal(t, "handlerA", next.Handler)

	// peeking claims nothing
	pending, err := q.CountByStatus(schema.TaskPending)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

func TestHasLiveTask(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()
	q := New(db, testutil.GetLogger())

	params := map[string]string{"protocol": "pancake"}
	_, err := q.Push("poolScanner", params)
	require.NoError(t, err)

	ok, err := q.HasLiveTask("poolScanner", params)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.HasLiveTask("poolScanner", map[string]string{"protocol": "sushi"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = q.HasLiveTask("poolScanner", nil)
	require.NoError(t, err)
	assert.True(t, ok, "nil params matches any live task for the handler")

	tasks, err := q.ClaimDue(1, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	ok, err = q.HasLiveTask("poolScanner", params)
	require.NoError(t, err)
	assert.True(t, ok, "running tasks still count as live")

	require.NoError(t, q.MarkDone(tasks[0]))
	ok, err = q.HasLiveTask("poolScanner", params)
	require.NoError(t, err)
	assert.False(t, ok)
}
