package automate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistack/automate/core/notify"
	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
)

const (
	ActionEthereumAutomateRun = "ethereumAutomateRun"
	ActionNotification        = "notification"
)

type automateRunParams struct {
	Network  string `json:"network"`
	Contract string `json:"contract"`
}

// EthereumAutomateRunAction submits a run() transaction to a deployed
// automate contract. The transaction hash is logged, confirmation
// tracking is the chain scanner's job.
type EthereumAutomateRunAction struct {
	networks ChainProvider
	logger   logger.Logger
}

func NewEthereumAutomateRunAction(networks ChainProvider, lg logger.Logger) *EthereumAutomateRunAction {
	return &EthereumAutomateRunAction{
		networks: networks,
		logger:   logger.EnsureLogger(lg),
	}
}

func (a *EthereumAutomateRunAction) Execute(ctx context.Context, trigger *model.Trigger, params json.RawMessage) error {
	var p automateRunParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("decode automate run params: %w", err)
	}

	client, err := a.networks.ByNetwork(p.Network)
	if err != nil {
		return err
	}

	txHash, err := client.AutomateRun(ctx, common.HexToAddress(p.Contract))
	if err != nil {
		return err
	}

	a.logger.Info("automate run submitted",
		"trigger_id", trigger.ID, "network", p.Network, "contract", p.Contract, "tx_hash", txHash)
	return nil
}

type notificationParams struct {
	Contact string `json:"contact"`
	Message string `json:"message"`
}

type triggerNotificationPayload struct {
	Message     string `json:"message"`
	TriggerID   string `json:"triggerId"`
	TriggerName string `json:"triggerName"`
}

// NotificationAction records a notification for a contact when the
// trigger fires
type NotificationAction struct {
	notifications *notify.Service
}

func NewNotificationAction(notifications *notify.Service) *NotificationAction {
	return &NotificationAction{notifications: notifications}
}

func (a *NotificationAction) Execute(_ context.Context, trigger *model.Trigger, params json.RawMessage) error {
	var p notificationParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("decode notification params: %w", err)
	}

	_, err := a.notifications.CreateNotification(p.Contact, model.NotificationTypeTrigger, triggerNotificationPayload{
		Message:     p.Message,
		TriggerID:   trigger.ID,
		TriggerName: trigger.Name,
	})
	return err
}
