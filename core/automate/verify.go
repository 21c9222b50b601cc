package automate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/defistack/automate/core/chain"
	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
)

// HandlerContractVerify is the queue handler name for automate contract
// verification
const HandlerContractVerify = "automateContractVerify"

const verifyRetryDelay = 5 * time.Minute

// ABIResolver fetches a verified contract's ABI; satisfied by the
// explorer client
type ABIResolver interface {
	GetContractABI(ctx context.Context, address string) (string, error)
}

// ExplorerProvider resolves an explorer per network id
type ExplorerProvider interface {
	ScanByNetwork(network string) (ABIResolver, error)
}

// ContractStore is the catalogue surface verification needs; satisfied by
// the pools service
type ContractStore interface {
	ContractByID(id string) (*model.Contract, error)
	UpdateContract(c *model.Contract) error
}

// VerifyParams addresses one user registered automate contract
type VerifyParams struct {
	ID string `json:"id"`
}

// ContractVerifier confirms that a user registered automate contract has
// verified source code on the network's block explorer. A rate limited
// explorer response re-pushes the task with a delay instead of failing it.
type ContractVerifier struct {
	contracts ContractStore
	explorers ExplorerProvider
	logger    logger.Logger
}

func NewContractVerifier(contracts ContractStore, explorers ExplorerProvider, lg logger.Logger) *ContractVerifier {
	return &ContractVerifier{
		contracts: contracts,
		explorers: explorers,
		logger:    logger.EnsureLogger(lg),
	}
}

func (v *ContractVerifier) Perform(p *queue.Process) error {
	var params VerifyParams
	if err := p.Params(&params); err != nil {
		return fmt.Errorf("decode verify params: %w", err)
	}

	contract, err := v.contracts.ContractByID(params.ID)
	if err != nil {
		return fmt.Errorf("contract %s: %w", params.ID, err)
	}

	explorer, err := v.explorers.ScanByNetwork(contract.Network)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err = explorer.GetContractABI(ctx, contract.Address)
	switch {
	case err == nil:
		contract.Verification = model.ContractVerificationConfirmed
		contract.RejectReason = ""
	case errors.Is(err, chain.ErrRateLimited):
		v.logger.Warn("explorer rate limited, retrying verification later",
			"contract_id", contract.ID, "retry_in", verifyRetryDelay)
		p.Later(verifyRetryDelay)
		return nil
	case errors.Is(err, chain.ErrNotVerified):
		contract.Verification = model.ContractVerificationRejected
		contract.RejectReason = "contract source code not verified"
	default:
		return err
	}

	if err := v.contracts.UpdateContract(contract); err != nil {
		return err
	}

	v.logger.Info("contract verification settled",
		"contract_id", contract.ID, "status", contract.Verification)
	p.Done()
	return nil
}
