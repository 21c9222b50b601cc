package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// PoolDescriptor is one entry of a MasterChef style pool registry
type PoolDescriptor struct {
	Index      int
	LPToken    common.Address
	AllocPoint *big.Int
}

// Staked reports whether the pool still receives rewards. Pools with a
// zero allocation weight are treated as removed.
func (p *PoolDescriptor) Staked() bool {
	return p.AllocPoint != nil && p.AllocPoint.Sign() > 0
}

// NetworkConfig describes one supported network
type NetworkConfig struct {
	ID                string `yaml:"id" validate:"required"`
	RPCURL            string `yaml:"rpcUrl" validate:"required,url"`
	TxExplorerURL     string `yaml:"txExplorerUrl" validate:"required,url"`
	WalletExplorerURL string `yaml:"walletExplorerUrl" validate:"required,url"`
	ExplorerAPIURL    string `yaml:"explorerApiUrl" validate:"omitempty,url"`
}

// Client reads and writes one network through its JSON-RPC endpoint
type Client struct {
	eth     *ethclient.Client
	network NetworkConfig

	// signer is optional; only the automate run action needs it
	signer  *ecdsa.PrivateKey
	chainID *big.Int
}

func NewClient(network NetworkConfig, signerHexKey string) (*Client, error) {
	conn, err := ethclient.Dial(network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", network.ID, err)
	}

	c := &Client{
		eth:     conn,
		network: network,
	}

	if signerHexKey != "" {
		key, err := crypto.HexToECDSA(signerHexKey)
		if err != nil {
			return nil, fmt.Errorf("parse signer key: %w", err)
		}
		c.signer = key
	}

	return c, nil
}

func (c *Client) Network() NetworkConfig {
	return c.network
}

// CurrentBlock returns the network's latest block height
func (c *Client) CurrentBlock(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BalanceAt returns the native token balance of an address
func (c *Client) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, address, nil)
}

// PoolCount returns the length of a MasterChef pool registry
func (c *Client) PoolCount(ctx context.Context, masterChef common.Address) (int, error) {
	contract := bind.NewBoundContract(masterChef, parsedMasterChefABI, c.eth, c.eth, c.eth)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "poolLength"); err != nil {
		return 0, fmt.Errorf("poolLength %s: %w", masterChef.Hex(), err)
	}

	return int(out[0].(*big.Int).Int64()), nil
}

// PoolInfo reads one pool descriptor from a MasterChef registry
func (c *Client) PoolInfo(ctx context.Context, masterChef common.Address, index int) (*PoolDescriptor, error) {
	contract := bind.NewBoundContract(masterChef, parsedMasterChefABI, c.eth, c.eth, c.eth)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "poolInfo", big.NewInt(int64(index))); err != nil {
		return nil, fmt.Errorf("poolInfo %s[%d]: %w", masterChef.Hex(), index, err)
	}

	return &PoolDescriptor{
		Index:      index,
		LPToken:    out[0].(common.Address),
		AllocPoint: out[1].(*big.Int),
	}, nil
}

// PairTokens resolves the two underlying tokens of a uniswap V2 style
// pair. Fails for plain ERC20 tokens, which is how the reconciler tells
// single-asset pools apart from LP pools.
func (c *Client) PairTokens(ctx context.Context, pair common.Address) (common.Address, common.Address, error) {
	contract := bind.NewBoundContract(pair, parsedPairABI, c.eth, c.eth, c.eth)
	opts := &bind.CallOpts{Context: ctx}

	var out0 []interface{}
	if err := contract.Call(opts, &out0, "token0"); err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token0 %s: %w", pair.Hex(), err)
	}

	var out1 []interface{}
	if err := contract.Call(opts, &out1, "token1"); err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token1 %s: %w", pair.Hex(), err)
	}

	return out0[0].(common.Address), out1[0].(common.Address), nil
}

// TokenSymbol reads an ERC20 token's symbol
func (c *Client) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	contract := bind.NewBoundContract(token, parsedERC20ABI, c.eth, c.eth, c.eth)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return "", fmt.Errorf("symbol %s: %w", token.Hex(), err)
	}

	return out[0].(string), nil
}

// AutomateRun submits a run() transaction to an automate contract and
// returns the transaction hash. Requires a configured signer.
func (c *Client) AutomateRun(ctx context.Context, contract common.Address) (string, error) {
	if c.signer == nil {
		return "", fmt.Errorf("network %s has no signer configured", c.network.ID)
	}

	chainID, err := c.getChainID(ctx)
	if err != nil {
		return "", err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.signer, chainID)
	if err != nil {
		return "", fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx

	bound := bind.NewBoundContract(contract, parsedAutomateABI, c.eth, c.eth, c.eth)
	tx, err := bound.Transact(opts, "run")
	if err != nil {
		return "", fmt.Errorf("automate run %s: %w", contract.Hex(), err)
	}

	return tx.Hash().Hex(), nil
}

func (c *Client) getChainID(ctx context.Context) (*big.Int, error) {
	if c.chainID != nil {
		return c.chainID, nil
	}

	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id for %s: %w", c.network.ID, err)
	}
	c.chainID = id
	return id, nil
}
