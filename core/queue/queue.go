package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
	"github.com/defistack/automate/storage/schema"
)

// Queue is the persisted task store. Pending tasks are keyed by their
// startAt so an ascending prefix scan returns oldest-due first; claiming
// moves the key into the running keyspace under the store mutex, which is
// the single source of mutual exclusion between pollers.
type Queue struct {
	db     storage.Storage
	dbLock sync.Mutex

	logger logger.Logger
}

func New(db storage.Storage, lg logger.Logger) *Queue {
	return &Queue{
		db:     db,
		logger: logger.EnsureLogger(lg),
	}
}

// Push enqueues a task that is due immediately
func (q *Queue) Push(handler string, params interface{}) (string, error) {
	return q.PushAt(handler, params, time.Now())
}

// PushAt enqueues a task that becomes due at startAt
func (q *Queue) PushAt(handler string, params interface{}, startAt time.Time) (string, error) {
	raw, err := toRawParams(params)
	if err != nil {
		return "", fmt.Errorf("encode params for %s: %w", handler, err)
	}

	now := time.Now()
	task := &model.Task{
		ID:        model.GenerateID(),
		Handler:   handler,
		Params:    raw,
		Status:    model.TaskStatusPending,
		StartAt:   startAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := q.writeTask(task, schema.TaskPending); err != nil {
		return "", err
	}

	q.logger.Debug("task pushed", "task_id", task.ID, "handler", handler, "start_at", startAt)
	return task.ID, nil
}

// ClaimDue returns up to limit due pending tasks and atomically marks them
// running. A task returned here is never returned to another caller until
// it is re-pushed.
func (q *Queue) ClaimDue(limit int, now time.Time) ([]*model.Task, error) {
	q.dbLock.Lock()
	defer q.dbLock.Unlock()

	kvs, err := q.db.GetByPrefix(schema.TaskQueuePrefix(schema.TaskPending))
	if err != nil {
		return nil, err
	}

	var claimed []*model.Task
	for _, kv := range kvs {
		if len(claimed) >= limit {
			break
		}

		task, err := model.TaskFromJSON(kv.Value)
		if err != nil {
			q.logger.Error("undecodable task dropped from pending", "key", string(kv.Key), "error", err)
			if delErr := q.db.Delete(kv.Key); delErr != nil {
				return claimed, delErr
			}
			continue
		}

		// keys are ordered by startAt, nothing further is due
		if task.StartAt.After(now) {
			break
		}

		task.Status = model.TaskStatusRunning
		task.UpdatedAt = time.Now()

		dest := schema.TaskQueueKey(schema.TaskRunning, task.StartAt.UnixMilli(), task.ID)
		if err := q.db.Move(kv.Key, dest); err != nil {
			return claimed, err
		}
		if err := q.writeTaskAt(task, dest); err != nil {
			return claimed, err
		}

		claimed = append(claimed, task)
	}

	return claimed, nil
}

// MarkDone moves a running task into terminal success
func (q *Queue) MarkDone(task *model.Task) error {
	return q.finish(task, model.TaskStatusDone, schema.TaskDone, "")
}

// MarkError moves a running task into terminal failure with the recorded
// reason. Error tasks stay in the store for inspection and are never
// retried unless explicitly re-pushed.
func (q *Queue) MarkError(task *model.Task, reason string) error {
	return q.finish(task, model.TaskStatusError, schema.TaskError, reason)
}

// Requeue re-pushes a terminal task as a fresh pending task at startAt,
// bumping its retry counter. This is the only retry mechanism: it is
// always an explicit handler or operator decision.
func (q *Queue) Requeue(task *model.Task, startAt time.Time) (string, error) {
	now := time.Now()
	next := &model.Task{
		ID:        model.GenerateID(),
		Handler:   task.Handler,
		Params:    task.Params,
		Status:    model.TaskStatusPending,
		StartAt:   startAt,
		Retries:   task.Retries + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := q.writeTask(next, schema.TaskPending); err != nil {
		return "", err
	}

	q.logger.Info("task requeued", "task_id", task.ID, "next_task_id", next.ID, "handler", task.Handler, "retries", next.Retries)
	return next.ID, nil
}

// HasLiveTask reports whether any pending or running task addresses the
// given handler, optionally with byte-identical params. Boot time seeding
// uses it so restarts don't stack duplicate self-rescheduling tasks.
func (q *Queue) HasLiveTask(handler string, params interface{}) (bool, error) {
	var raw json.RawMessage
	if params != nil {
		var err error
		raw, err = toRawParams(params)
		if err != nil {
			return false, err
		}
	}

	for _, status := range []string{schema.TaskPending, schema.TaskRunning} {
		kvs, err := q.db.GetByPrefix(schema.TaskQueuePrefix(status))
		if err != nil {
			return false, err
		}
		for _, kv := range kvs {
			task, err := model.TaskFromJSON(kv.Value)
			if err != nil {
				continue
			}
			if task.Handler != handler {
				continue
			}
			if raw == nil || bytes.Equal(task.Params, raw) {
				return true, nil
			}
		}
	}
	return false, nil
}

// NextDue peeks the earliest pending task without claiming it, used by
// operator tooling. Returns nil when the pending keyspace is empty.
func (q *Queue) NextDue() (*model.Task, error) {
	_, value, err := q.db.FirstKVHasPrefix(schema.TaskQueuePrefix(schema.TaskPending))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return model.TaskFromJSON(value)
}

// CountByStatus reports how many tasks sit under one status keyspace
func (q *Queue) CountByStatus(status string) (int64, error) {
	return q.db.CountKeysByPrefix(schema.TaskQueuePrefix(status))
}

// ListByStatus returns every task under one status keyspace, used by
// operator tooling to inspect error tasks.
func (q *Queue) ListByStatus(status string) ([]*model.Task, error) {
	kvs, err := q.db.GetByPrefix(schema.TaskQueuePrefix(status))
	if err != nil {
		return nil, err
	}

	tasks := make([]*model.Task, 0, len(kvs))
	for _, kv := range kvs {
		task, err := model.TaskFromJSON(kv.Value)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// Recover moves tasks stuck in running back to pending. Called once on
// boot before workers start, so an abrupt shutdown never strands a claim.
func (q *Queue) Recover() (int, error) {
	q.dbLock.Lock()
	defer q.dbLock.Unlock()

	kvs, err := q.db.GetByPrefix(schema.TaskQueuePrefix(schema.TaskRunning))
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, kv := range kvs {
		task, err := model.TaskFromJSON(kv.Value)
		if err != nil {
			q.logger.Error("undecodable running task dropped", "key", string(kv.Key), "error", err)
			if delErr := q.db.Delete(kv.Key); delErr != nil {
				return recovered, delErr
			}
			continue
		}

		task.Status = model.TaskStatusPending
		task.UpdatedAt = time.Now()

		// move first so the task exists under some keyspace at every
		// crash point, then overwrite with the re-pended record
		dest := schema.TaskQueueKey(schema.TaskPending, task.StartAt.UnixMilli(), task.ID)
		if err := q.db.Move(kv.Key, dest); err != nil {
			return recovered, err
		}
		if err := q.writeTaskAt(task, dest); err != nil {
			return recovered, err
		}
		recovered++
	}

	if recovered > 0 {
		q.logger.Info("recovered stranded running tasks", "count", recovered)
	}
	return recovered, nil
}

func (q *Queue) finish(task *model.Task, status model.TaskStatus, statusKey string, reason string) error {
	q.dbLock.Lock()
	defer q.dbLock.Unlock()

	src := schema.TaskQueueKey(schema.TaskRunning, task.StartAt.UnixMilli(), task.ID)
	if err := q.db.Delete(src); err != nil {
		return fmt.Errorf("finish task %s: %w", task.ID, err)
	}

	task.Status = status
	task.Error = reason
	task.UpdatedAt = time.Now()

	return q.writeTask(task, statusKey)
}

func (q *Queue) writeTask(task *model.Task, statusKey string) error {
	return q.writeTaskAt(task, schema.TaskQueueKey(statusKey, task.StartAt.UnixMilli(), task.ID))
}

func (q *Queue) writeTaskAt(task *model.Task, key []byte) error {
	b, err := task.ToJSON()
	if err != nil {
		return err
	}
	return q.db.Set(key, b)
}

func toRawParams(params interface{}) (json.RawMessage, error) {
	switch v := params.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(params)
	}
}
