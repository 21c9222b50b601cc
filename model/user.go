package model

import (
	"encoding/json"
	"time"
)

// Wallet links a user to an owned chain address. Triggers are scoped to a
// wallet and every trigger mutation checks the wallet's user.
type Wallet struct {
	ID         string    `json:"id"`
	User       string    `json:"user"`
	Blockchain string    `json:"blockchain"`
	Network    string    `json:"network"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WebHook is a registered contract event feed
type WebHook struct {
	ID        string    `json:"id"`
	Contract  string    `json:"contract"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription links a user contact to a webhook
type Subscription struct {
	ID        string    `json:"id"`
	WebHook   string    `json:"webHook"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"createdAt"`
}

// Contact is a user's delivery endpoint (email, telegram and so on).
// Content rendering and transport live outside the core.
type Contact struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Channel   string    `json:"channel"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

type NotificationType string

const (
	NotificationTypeEvent   NotificationType = "event"
	NotificationTypeTrigger NotificationType = "trigger"
)

// Notification is an immutable fact: one per (contact, event batch)
type Notification struct {
	ID        string           `json:"id"`
	Contact   string           `json:"contact"`
	Type      NotificationType `json:"type"`
	Payload   json.RawMessage  `json:"payload"`
	CreatedAt time.Time        `json:"createdAt"`
}
