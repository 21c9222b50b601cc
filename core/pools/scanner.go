package pools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/defistack/automate/core/chain"
	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/metrics"
	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
)

// HandlerPoolScanner is the queue handler name for catalogue reconciliation
const HandlerPoolScanner = "poolScanner"

const (
	defaultScanInterval = 10 * time.Minute
	poolFetchWorkers    = 10
)

// ChainReader is the read surface the scanner needs from one network
type ChainReader interface {
	PoolCount(ctx context.Context, masterChef common.Address) (int, error)
	PoolInfo(ctx context.Context, masterChef common.Address, index int) (*chain.PoolDescriptor, error)
	PairTokens(ctx context.Context, pair common.Address) (common.Address, common.Address, error)
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
	CurrentBlock(ctx context.Context) (uint64, error)
	Network() chain.NetworkConfig
}

// ChainProvider resolves a reader per network id
type ChainProvider interface {
	ByNetwork(id string) (ChainReader, error)
}

// ScannerParams is the task payload for one reconciliation run
type ScannerParams struct {
	ProtocolName        string `json:"protocolName" yaml:"protocol_name"`
	ProtocolDescription string `json:"protocolDescription" yaml:"protocol_description"`
	AdapterName         string `json:"adapterName" yaml:"adapter_name"`
	FarmingAdapterName  string `json:"farmingAdapterName" yaml:"farming_adapter_name"`
	ContractAddress     string `json:"contractAddress" yaml:"contract_address"`
	Network             string `json:"network" yaml:"network"`
	ReservedPools       []int  `json:"reservedPools" yaml:"reserved_pools"`

	// IntervalSeconds overrides the self-reschedule delay
	IntervalSeconds int `json:"intervalSeconds,omitempty" yaml:"interval_seconds"`
}

// Scanner reconciles a protocol's contract catalogue against the on-chain
// pool registry of a MasterChef style farming contract. It only ever adds
// rows or flips the hidden flag; re-running against unchanged chain state
// changes nothing.
type Scanner struct {
	service  *Service
	networks ChainProvider

	runTimeout time.Duration

	logger  logger.Logger
	metrics *metrics.Collector
}

func NewScanner(service *Service, networks ChainProvider, lg logger.Logger, m *metrics.Collector) *Scanner {
	return &Scanner{
		service:    service,
		networks:   networks,
		runTimeout: 10 * time.Minute,
		logger:     logger.EnsureLogger(lg),
		metrics:    m,
	}
}

func (s *Scanner) Perform(p *queue.Process) error {
	var params ScannerParams
	if err := p.Params(&params); err != nil {
		return fmt.Errorf("decode scanner params: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	if err := s.Scan(ctx, &params); err != nil {
		return err
	}

	interval := defaultScanInterval
	if params.IntervalSeconds > 0 {
		interval = time.Duration(params.IntervalSeconds) * time.Second
	}
	p.Later(interval)
	return nil
}

// Scan runs one reconciliation pass
func (s *Scanner) Scan(ctx context.Context, params *ScannerParams) error {
	protocol, err := s.service.EnsureProtocol(params.ProtocolName, params.ProtocolDescription, params.AdapterName)
	if err != nil {
		return err
	}

	client, err := s.networks.ByNetwork(params.Network)
	if err != nil {
		return err
	}

	masterChef := common.HexToAddress(params.ContractAddress)

	pools, err := s.fetchPools(ctx, client, masterChef, params.ReservedPools)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.AddPoolsScanned(len(pools))
	}

	contracts, err := s.service.Contracts(protocol.ID, params.Network, false)
	if err != nil {
		return err
	}

	staked := lo.Filter(pools, func(p *chain.PoolDescriptor, _ int) bool {
		return p.Staked()
	})

	catalogued := func(address string) bool {
		address = model.NormalizeAddress(address)
		return lo.SomeBy(contracts, func(c *model.Contract) bool {
			return c.Address == address
		})
	}

	newPools := lo.Filter(staked, func(p *chain.PoolDescriptor, _ int) bool {
		return !catalogued(p.LPToken.Hex())
	})

	removed := lo.Filter(contracts, func(c *model.Contract, _ int) bool {
		return !lo.SomeBy(staked, func(p *chain.PoolDescriptor) bool {
			return model.NormalizeAddress(p.LPToken.Hex()) == c.Address
		})
	})

	created := 0
	for _, pool := range newPools {
		ok, err := s.cataloguePool(ctx, client, protocol, params, masterChef, pool)
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}

	for _, contract := range removed {
		if err := s.service.HideContract(contract); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.IncContractSoftDeleted()
		}
		s.logger.Info("contract hidden, pool left on-chain registry",
			"contract_id", contract.ID, "address", contract.Address)
	}

	s.logger.Info("pool scan finished",
		"protocol", protocol.Name, "network", params.Network,
		"on_chain", len(pools), "staked", len(staked),
		"created", created, "hidden", len(removed))
	return nil
}

// fetchPools reads every pool descriptor in parallel, skipping reserved
// indexes
func (s *Scanner) fetchPools(ctx context.Context, client ChainReader, masterChef common.Address, reserved []int) ([]*chain.PoolDescriptor, error) {
	count, err := client.PoolCount(ctx, masterChef)
	if err != nil {
		return nil, err
	}

	pools := make([]*chain.PoolDescriptor, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(poolFetchWorkers)
	for i := 0; i < count; i++ {
		if lo.Contains(reserved, i) {
			continue
		}

		index := i
		g.Go(func() error {
			info, err := client.PoolInfo(gctx, masterChef, index)
			if err != nil {
				return err
			}
			pools[index] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := lo.Filter(pools, func(p *chain.PoolDescriptor, _ int) bool {
		return p != nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

// cataloguePool introspects one new pool as a liquidity pair and creates
// its catalogue row. Pools holding a plain ERC20 instead of an LP token
// fail pair introspection and are skipped without failing the run.
func (s *Scanner) cataloguePool(ctx context.Context, client ChainReader, protocol *model.Protocol, params *ScannerParams, masterChef common.Address, pool *chain.PoolDescriptor) (bool, error) {
	token0, token1, err := client.PairTokens(ctx, pool.LPToken)
	if err != nil {
		s.logger.Debug("pool is not a pair, skipping",
			"pool_index", pool.Index, "lp_token", pool.LPToken.Hex())
		return false, nil
	}

	symbol0, err := client.TokenSymbol(ctx, token0)
	if err != nil {
		return false, fmt.Errorf("symbol of %s: %w", token0.Hex(), err)
	}
	symbol1, err := client.TokenSymbol(ctx, token1)
	if err != nil {
		return false, fmt.Errorf("symbol of %s: %w", token1.Hex(), err)
	}

	block, err := client.CurrentBlock(ctx)
	if err != nil {
		return false, err
	}

	_, err = s.service.CreateContract(&model.Contract{
		Protocol:          protocol.ID,
		Blockchain:        "ethereum",
		Network:           params.Network,
		Address:           model.NormalizeAddress(pool.LPToken.Hex()),
		Adapter:           params.FarmingAdapterName,
		Name:              fmt.Sprintf("%s/%s LP", symbol0, symbol1),
		Link:              fmt.Sprintf("%s/%s", client.Network().WalletExplorerURL, masterChef.Hex()),
		DeployBlockNumber: &block,
		Automate: model.ContractAutomate{
			Adapter: params.FarmingAdapterName,
		},
	})
	if err != nil {
		return false, err
	}

	return true, nil
}
