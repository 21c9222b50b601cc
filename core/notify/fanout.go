package notify

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/metrics"
	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
)

// HandlerWebHookEvents is the queue handler name for event fan-out
const HandlerWebHookEvents = "webHookEvents"

// ContractFinder resolves catalogue rows; satisfied by the pools service
type ContractFinder interface {
	ContractByID(id string) (*model.Contract, error)
}

// ExplorerLinker builds block explorer transaction links; satisfied by the
// chain provider
type ExplorerLinker interface {
	TxExplorerURL(network, txHash string) (string, error)
}

// RawEvent is one chain event as delivered by the event scanner
type RawEvent struct {
	BlockNumber      uint64                 `json:"blockNumber"`
	TransactionHash  string                 `json:"transactionHash"`
	TransactionIndex uint                   `json:"transactionIndex"`
	LogIndex         uint                   `json:"logIndex"`
	Args             map[string]interface{} `json:"args,omitempty"`
}

// EventURL pairs a transaction hash with its explorer link
type EventURL struct {
	Link   string `json:"link"`
	TxHash string `json:"txHash"`
}

// FanOutParams is the task payload for one webhook event batch
type FanOutParams struct {
	WebHookID string     `json:"webHookId"`
	EventName string     `json:"eventName"`
	Events    []RawEvent `json:"events"`
}

// EventPayload is the shared notification payload for every subscriber
type EventPayload struct {
	EventName       string     `json:"eventName"`
	ContractAddress string     `json:"contractAddress"`
	Network         string     `json:"network"`
	EventURLs       []EventURL `json:"eventsUrls"`
}

// FanOut translates one webhook event batch into per-contact
// notifications. A dead contact loses its notification silently, the rest
// of the batch is unaffected; only a missing webhook or contract fails the
// task.
type FanOut struct {
	service   *Service
	contracts ContractFinder
	explorer  ExplorerLinker

	logger  logger.Logger
	metrics *metrics.Collector
}

func NewFanOut(service *Service, contracts ContractFinder, explorer ExplorerLinker, lg logger.Logger, m *metrics.Collector) *FanOut {
	return &FanOut{
		service:   service,
		contracts: contracts,
		explorer:  explorer,
		logger:    logger.EnsureLogger(lg),
		metrics:   m,
	}
}

func (f *FanOut) Perform(p *queue.Process) error {
	var params FanOutParams
	if err := p.Params(&params); err != nil {
		return fmt.Errorf("decode webhook event params: %w", err)
	}

	webHook, err := f.service.WebHook(params.WebHookID)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", params.WebHookID, err)
	}

	contract, err := f.contracts.ContractByID(webHook.Contract)
	if err != nil {
		return fmt.Errorf("contract %s for webhook %s: %w", webHook.Contract, webHook.ID, err)
	}

	subscriptions, err := f.service.Subscriptions(webHook.ID)
	if err != nil {
		return err
	}

	eventURLs := lo.Map(params.Events, func(ev RawEvent, _ int) EventURL {
		link, linkErr := f.explorer.TxExplorerURL(contract.Network, ev.TransactionHash)
		if linkErr != nil {
			link = ev.TransactionHash
		}
		return EventURL{Link: link, TxHash: ev.TransactionHash}
	})

	payload := EventPayload{
		EventName:       params.EventName,
		ContractAddress: contract.Address,
		Network:         contract.Network,
		EventURLs:       eventURLs,
	}

	created := 0
	for _, sub := range subscriptions {
		contact, err := f.service.Contact(sub.Contact)
		if err != nil {
			// subscriber level fault: skip, never abort the batch
			f.logger.Warn("skipping subscription with unresolvable contact",
				"subscription_id", sub.ID, "contact_id", sub.Contact, "error", err)
			continue
		}

		if _, err := f.service.CreateNotification(contact.ID, model.NotificationTypeEvent, payload); err != nil {
			f.logger.Error("failed to create notification",
				"contact_id", contact.ID, "webhook_id", webHook.ID, "error", err)
			continue
		}
		created++
	}

	if f.metrics != nil {
		f.metrics.AddNotificationsCreated(created)
	}
	f.logger.Info("webhook events fanned out",
		"webhook_id", webHook.ID, "event", params.EventName,
		"subscriptions", len(subscriptions), "notifications", created)

	p.Done()
	return nil
}
