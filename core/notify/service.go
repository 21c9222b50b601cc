package notify

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
	"github.com/defistack/automate/storage/schema"
)

var (
	// ErrWebHookNotFound and ErrContractNotFound invalidate a fan-out
	// task's premise and fail it; the referenced rows are expected to be
	// valid by construction.
	ErrWebHookNotFound  = errors.New("webhook not found")
	ErrContractNotFound = errors.New("contract not found")

	ErrContactNotFound = errors.New("contact not found")
)

// Service owns webhook, subscription, contact and notification rows
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

func (s *Service) WebHook(id string) (*model.WebHook, error) {
	b, err := s.db.GetKey(schema.WebHookKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrWebHookNotFound
		}
		return nil, err
	}

	wh := &model.WebHook{}
	if err := json.Unmarshal(b, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

func (s *Service) SaveWebHook(wh *model.WebHook) error {
	b, err := json.Marshal(wh)
	if err != nil {
		return err
	}
	return s.db.Set(schema.WebHookKey(wh.ID), b)
}

// Subscriptions lists every subscription attached to a webhook
func (s *Service) Subscriptions(webHookID string) ([]*model.Subscription, error) {
	kvs, err := s.db.GetByPrefix(schema.SubscriptionPrefix(webHookID))
	if err != nil {
		return nil, err
	}

	list := make([]*model.Subscription, 0, len(kvs))
	for _, kv := range kvs {
		sub := &model.Subscription{}
		if err := json.Unmarshal(kv.Value, sub); err != nil {
			return nil, err
		}
		list = append(list, sub)
	}
	return list, nil
}

func (s *Service) SaveSubscription(sub *model.Subscription) error {
	b, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.db.Set(schema.SubscriptionKey(sub.WebHook, sub.ID), b)
}

func (s *Service) Contact(id string) (*model.Contact, error) {
	b, err := s.db.GetKey(schema.ContactKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	c := &model.Contact{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SaveContact(c *model.Contact) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Set(schema.ContactKey(c.ID), b)
}

func (s *Service) DeleteContact(id string) error {
	return s.db.Delete(schema.ContactKey(id))
}

// CreateNotification records an immutable notification fact for a contact.
// Rendering and delivery to the contact's channel happen elsewhere.
func (s *Service) CreateNotification(contactID string, notifType model.NotificationType, payload interface{}) (*model.Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		ID:        model.GenerateID(),
		Contact:   contactID,
		Type:      notifType,
		Payload:   raw,
		CreatedAt: time.Now(),
	}

	b, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	if err := s.db.Set(schema.NotificationKey(contactID, n.ID), b); err != nil {
		return nil, err
	}

	return n, nil
}

// Notifications lists a contact's notifications in creation order
func (s *Service) Notifications(contactID string) ([]*model.Notification, error) {
	kvs, err := s.db.GetByPrefix(schema.NotificationPrefix(contactID))
	if err != nil {
		return nil, err
	}

	list := make([]*model.Notification, 0, len(kvs))
	for _, kv := range kvs {
		n := &model.Notification{}
		if err := json.Unmarshal(kv.Value, n); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, nil
}
