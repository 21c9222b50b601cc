// Package schema centralizes the badger key layout. Every table is a key
// prefix; ids are ULIDs so iteration order within a prefix is creation order.
package schema

import (
	"fmt"
)

// Task queue keys. The status segment is a single letter:
// p: pending - waiting for its startAt to become due
// x: running - claimed by a worker, exactly one claim at a time
// c: done - terminal success, kept as history
// f: error - terminal failure with recorded reason, kept for inspection
//
// Pending keys embed the startAt milliseconds zero-padded in front of the
// task id so an ascending prefix scan yields oldest-due first.
const (
	TaskPending = "p"
	TaskRunning = "x"
	TaskDone    = "c"
	TaskError   = "f"
)

func TaskQueuePrefix(status string) []byte {
	return []byte(fmt.Sprintf("q:%s:", status))
}

func TaskQueueKey(status string, startAtMilli int64, id string) []byte {
	return []byte(fmt.Sprintf("q:%s:%013d:%s", status, startAtMilli, id))
}

// Automation keys. Conditions and actions live under their trigger id so a
// trigger delete is a prefix sweep and child listing is one prefix scan.

func TriggerKey(id string) []byte {
	return []byte(fmt.Sprintf("at:t:%s", id))
}

func TriggerPrefix() []byte {
	return []byte("at:t:")
}

func ConditionKey(triggerID, id string) []byte {
	return []byte(fmt.Sprintf("at:c:%s:%s", triggerID, id))
}

func ConditionPrefix(triggerID string) []byte {
	return []byte(fmt.Sprintf("at:c:%s:", triggerID))
}

func ActionKey(triggerID, id string) []byte {
	return []byte(fmt.Sprintf("at:a:%s:%s", triggerID, id))
}

func ActionPrefix(triggerID string) []byte {
	return []byte(fmt.Sprintf("at:a:%s:", triggerID))
}

// Protocol catalogue keys. Contracts are scoped under their protocol and a
// secondary name index allows ensure-by-name without a full scan.

func ProtocolKey(id string) []byte {
	return []byte(fmt.Sprintf("pr:%s", id))
}

func ProtocolNameIndexKey(name string) []byte {
	return []byte(fmt.Sprintf("pr:name:%s", name))
}

func ContractKey(protocolID, id string) []byte {
	return []byte(fmt.Sprintf("ct:%s:%s", protocolID, id))
}

func ContractPrefix(protocolID string) []byte {
	return []byte(fmt.Sprintf("ct:%s:", protocolID))
}

// User facing entities consumed by the automation core.

func WalletKey(id string) []byte {
	return []byte(fmt.Sprintf("w:%s", id))
}

func WebHookKey(id string) []byte {
	return []byte(fmt.Sprintf("wh:%s", id))
}

func SubscriptionKey(webHookID, id string) []byte {
	return []byte(fmt.Sprintf("sub:%s:%s", webHookID, id))
}

func SubscriptionPrefix(webHookID string) []byte {
	return []byte(fmt.Sprintf("sub:%s:", webHookID))
}

func ContactKey(id string) []byte {
	return []byte(fmt.Sprintf("uc:%s", id))
}

func NotificationKey(contactID, id string) []byte {
	return []byte(fmt.Sprintf("n:%s:%s", contactID, id))
}

func NotificationPrefix(contactID string) []byte {
	return []byte(fmt.Sprintf("n:%s:", contactID))
}
