package model

import (
	"strings"
	"time"
)

// Protocol groups the farming contracts of one DeFi protocol
type Protocol struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Adapter     string    `json:"adapter"`
	Hidden      bool      `json:"hidden"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ContractVerificationStatus string

const (
	ContractVerificationPending   ContractVerificationStatus = "pending"
	ContractVerificationConfirmed ContractVerificationStatus = "confirmed"
	ContractVerificationRejected  ContractVerificationStatus = "rejected"
)

// ContractAutomate carries the adapter wiring for automated restaking
type ContractAutomate struct {
	LpTokensManager    string `json:"lpTokensManager,omitempty"`
	Adapter            string `json:"adapter,omitempty"`
	AutoRestakeAdapter string `json:"autoRestakeAdapter,omitempty"`
}

// Contract is one catalogue entry: a farming pool the protocol exposes on
// chain. Rows are never physically removed, the reconciler only flips
// Hidden when a pool disappears from the on-chain registry.
type Contract struct {
	ID         string `json:"id"`
	Protocol   string `json:"protocol"`
	Wallet     string `json:"wallet,omitempty"`
	Blockchain string `json:"blockchain"`
	Network    string `json:"network"`

	// Address is stored lower-cased, unique per network and protocol
	Address string `json:"address"`

	Adapter           string           `json:"adapter"`
	Name              string           `json:"name"`
	Link              string           `json:"link,omitempty"`
	DeployBlockNumber *uint64          `json:"deployBlockNumber,omitempty"`
	Hidden            bool             `json:"hidden"`
	Automate          ContractAutomate `json:"automate"`

	// Verification only applies to user registered automate contracts;
	// reconciler created rows stay confirmed
	Verification ContractVerificationStatus `json:"verification,omitempty"`
	RejectReason string                     `json:"rejectReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeAddress lower-cases a chain address for storage and comparison
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}
