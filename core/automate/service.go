package automate

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
	"github.com/defistack/automate/storage/schema"
)

// Service owns trigger, condition and action persistence. Every mutation
// is authorized against the acting user through the trigger's wallet.
type Service struct {
	db     storage.Storage
	logger logger.Logger
}

func NewService(db storage.Storage, lg logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.EnsureLogger(lg),
	}
}

// Wallet loads a wallet row
func (s *Service) Wallet(id string) (*model.Wallet, error) {
	b, err := s.db.GetKey(schema.WalletKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	w := &model.Wallet{}
	if err := json.Unmarshal(b, w); err != nil {
		return nil, err
	}
	return w, nil
}

// SaveWallet persists a wallet row. Wallet lifecycle belongs to the user
// subsystem; the core only needs this for wiring and tests.
func (s *Service) SaveWallet(w *model.Wallet) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.db.Set(schema.WalletKey(w.ID), b)
}

// Trigger loads a trigger row
func (s *Service) Trigger(id string) (*model.Trigger, error) {
	b, err := s.db.GetKey(schema.TriggerKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrTriggerNotFound
		}
		return nil, err
	}

	t := &model.Trigger{}
	if err := json.Unmarshal(b, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTrigger creates a trigger owned by the given user's wallet
func (s *Service) CreateTrigger(userID, walletID, triggerType string, params json.RawMessage, name string, active bool) (*model.Trigger, error) {
	wallet, err := s.Wallet(walletID)
	if err != nil {
		return nil, err
	}
	if wallet.User != userID {
		return nil, ErrForeignWallet
	}

	t := &model.Trigger{
		ID:        model.GenerateID(),
		Wallet:    walletID,
		Type:      triggerType,
		Params:    params,
		Name:      name,
		Active:    active,
		CreatedAt: time.Now(),
	}

	if err := s.saveTrigger(t); err != nil {
		return nil, err
	}

	s.logger.Info("trigger created", "trigger_id", t.ID, "wallet", walletID, "name", name)
	return t, nil
}

// UpdateTrigger mutates name, params and active in place
func (s *Service) UpdateTrigger(userID, triggerID string, params json.RawMessage, name *string, active *bool) (*model.Trigger, error) {
	t, err := s.ownedTrigger(userID, triggerID)
	if err != nil {
		return nil, err
	}

	if params != nil {
		t.Params = params
	}
	if name != nil {
		t.Name = *name
	}
	if active != nil {
		t.Active = *active
	}

	if err := s.saveTrigger(t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTrigger removes a trigger and cascades to its conditions and actions
func (s *Service) DeleteTrigger(userID, triggerID string) error {
	t, err := s.ownedTrigger(userID, triggerID)
	if err != nil {
		return err
	}

	for _, prefix := range [][]byte{schema.ConditionPrefix(t.ID), schema.ActionPrefix(t.ID)} {
		keys, err := s.db.ListKeys(string(prefix) + "*")
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := s.db.Delete([]byte(k)); err != nil {
				return err
			}
		}
	}

	if err := s.db.Delete(schema.TriggerKey(t.ID)); err != nil {
		return err
	}

	s.logger.Info("trigger deleted", "trigger_id", t.ID)
	return nil
}

// SetLastCall stamps the trigger's last run start time
func (s *Service) SetLastCall(triggerID string, at time.Time) error {
	t, err := s.Trigger(triggerID)
	if err != nil {
		return err
	}

	t.LastCallAt = &at
	return s.saveTrigger(t)
}

// ActiveTriggers lists every active trigger, used by the broker handler to
// enqueue evaluation runs
func (s *Service) ActiveTriggers() ([]*model.Trigger, error) {
	kvs, err := s.db.GetByPrefix(schema.TriggerPrefix())
	if err != nil {
		return nil, err
	}

	var list []*model.Trigger
	for _, kv := range kvs {
		t := &model.Trigger{}
		if err := json.Unmarshal(kv.Value, t); err != nil {
			return nil, err
		}
		if t.Active {
			list = append(list, t)
		}
	}
	return list, nil
}

// Conditions lists a trigger's conditions ordered by (priority, createdAt)
func (s *Service) Conditions(triggerID string) ([]*model.Condition, error) {
	kvs, err := s.db.GetByPrefix(schema.ConditionPrefix(triggerID))
	if err != nil {
		return nil, err
	}

	list := make([]*model.Condition, 0, len(kvs))
	for _, kv := range kvs {
		c := &model.Condition{}
		if err := json.Unmarshal(kv.Value, c); err != nil {
			return nil, err
		}
		list = append(list, c)
	}

	model.SortConditions(list)
	return list, nil
}

// Actions lists a trigger's actions ordered by (priority, createdAt)
func (s *Service) Actions(triggerID string) ([]*model.Action, error) {
	kvs, err := s.db.GetByPrefix(schema.ActionPrefix(triggerID))
	if err != nil {
		return nil, err
	}

	list := make([]*model.Action, 0, len(kvs))
	for _, kv := range kvs {
		a := &model.Action{}
		if err := json.Unmarshal(kv.Value, a); err != nil {
			return nil, err
		}
		list = append(list, a)
	}

	model.SortActions(list)
	return list, nil
}

// CreateCondition appends a condition to a trigger. A nil priority means
// append-to-end: the current condition count becomes the priority.
func (s *Service) CreateCondition(userID, triggerID, condType string, params json.RawMessage, priority *int) (*model.Condition, error) {
	t, err := s.ownedTrigger(userID, triggerID)
	if err != nil {
		return nil, err
	}

	prio, err := s.resolvePriority(priority, schema.ConditionPrefix(t.ID))
	if err != nil {
		return nil, err
	}

	c := &model.Condition{
		ID:        model.GenerateID(),
		Trigger:   t.ID,
		Type:      condType,
		Params:    params,
		Priority:  prio,
		CreatedAt: time.Now(),
	}

	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	if err := s.db.Set(schema.ConditionKey(t.ID, c.ID), b); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCondition mutates params and priority in place
func (s *Service) UpdateCondition(userID, conditionID string, params json.RawMessage, priority *int) (*model.Condition, error) {
	c, err := s.findCondition(conditionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTrigger(userID, c.Trigger); err != nil {
		return nil, err
	}

	if params != nil {
		c.Params = params
	}
	if priority != nil {
		c.Priority = *priority
	}

	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	if err := s.db.Set(schema.ConditionKey(c.Trigger, c.ID), b); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCondition removes one condition
func (s *Service) DeleteCondition(userID, conditionID string) error {
	c, err := s.findCondition(conditionID)
	if err != nil {
		return err
	}
	if _, err := s.ownedTrigger(userID, c.Trigger); err != nil {
		return err
	}

	return s.db.Delete(schema.ConditionKey(c.Trigger, c.ID))
}

// CreateAction appends an action to a trigger, same priority semantics as
// CreateCondition but an independent sequence
func (s *Service) CreateAction(userID, triggerID, actionType string, params json.RawMessage, priority *int) (*model.Action, error) {
	t, err := s.ownedTrigger(userID, triggerID)
	if err != nil {
		return nil, err
	}

	prio, err := s.resolvePriority(priority, schema.ActionPrefix(t.ID))
	if err != nil {
		return nil, err
	}

	a := &model.Action{
		ID:        model.GenerateID(),
		Trigger:   t.ID,
		Type:      actionType,
		Params:    params,
		Priority:  prio,
		CreatedAt: time.Now(),
	}

	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if err := s.db.Set(schema.ActionKey(t.ID, a.ID), b); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAction mutates params and priority in place
func (s *Service) UpdateAction(userID, actionID string, params json.RawMessage, priority *int) (*model.Action, error) {
	a, err := s.findAction(actionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTrigger(userID, a.Trigger); err != nil {
		return nil, err
	}

	if params != nil {
		a.Params = params
	}
	if priority != nil {
		a.Priority = *priority
	}

	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if err := s.db.Set(schema.ActionKey(a.Trigger, a.ID), b); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAction removes one action
func (s *Service) DeleteAction(userID, actionID string) error {
	a, err := s.findAction(actionID)
	if err != nil {
		return err
	}
	if _, err := s.ownedTrigger(userID, a.Trigger); err != nil {
		return err
	}

	return s.db.Delete(schema.ActionKey(a.Trigger, a.ID))
}

func (s *Service) saveTrigger(t *model.Trigger) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.db.Set(schema.TriggerKey(t.ID), b)
}

func (s *Service) ownedTrigger(userID, triggerID string) (*model.Trigger, error) {
	t, err := s.Trigger(triggerID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.Wallet(t.Wallet)
	if err != nil {
		return nil, err
	}
	if wallet.User != userID {
		return nil, ErrForeignWallet
	}

	return t, nil
}

func (s *Service) resolvePriority(priority *int, childPrefix []byte) (int, error) {
	if priority != nil {
		return *priority, nil
	}

	count, err := s.db.CountKeysByPrefix(childPrefix)
	if err != nil {
		return 0, fmt.Errorf("count for default priority: %w", err)
	}
	return int(count), nil
}

// findCondition scans trigger keyspaces for a condition id. Condition ids
// are globally unique ULIDs so the first hit is the only hit.
func (s *Service) findCondition(id string) (*model.Condition, error) {
	kvs, err := s.db.GetByPrefix([]byte("at:c:"))
	if err != nil {
		return nil, err
	}

	for _, kv := range kvs {
		c := &model.Condition{}
		if err := json.Unmarshal(kv.Value, c); err != nil {
			return nil, err
		}
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrConditionNotFound
}

func (s *Service) findAction(id string) (*model.Action, error) {
	kvs, err := s.db.GetByPrefix([]byte("at:a:"))
	if err != nil {
		return nil, err
	}

	for _, kv := range kvs {
		a := &model.Action{}
		if err := json.Unmarshal(kv.Value, a); err != nil {
			return nil, err
		}
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrActionNotFound
}
