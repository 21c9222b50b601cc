package automate

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/expr-lang/expr"
	"github.com/shopspring/decimal"

	"github.com/defistack/automate/model"
)

// NetworkClient is the chain surface the built-in strategies need;
// satisfied by the chain client
type NetworkClient interface {
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
	CurrentBlock(ctx context.Context) (uint64, error)
	AutomateRun(ctx context.Context, contract common.Address) (string, error)
}

// ChainProvider resolves a client per network id
type ChainProvider interface {
	ByNetwork(id string) (NetworkClient, error)
}

// Built-in strategy type tags. The registry is open: deployments may
// register more.
const (
	ConditionEthereumBalance = "ethereumBalance"
	ConditionSchedule        = "schedule"
	ConditionExpression      = "expression"
)

var weiInEther = decimal.New(1, 18)

type ethereumBalanceParams struct {
	Network string `json:"network"`
	Address string `json:"address"`
	Op      string `json:"op"`
	Value   string `json:"value"`
}

// EthereumBalanceCondition compares a wallet's native token balance, in
// ether units, against a fixed threshold
type EthereumBalanceCondition struct {
	networks ChainProvider
}

func NewEthereumBalanceCondition(networks ChainProvider) *EthereumBalanceCondition {
	return &EthereumBalanceCondition{networks: networks}
}

func (c *EthereumBalanceCondition) Check(ctx context.Context, trigger *model.Trigger, params json.RawMessage) (bool, error) {
	var p ethereumBalanceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return false, fmt.Errorf("decode ethereumBalance params: %w", err)
	}

	client, err := c.networks.ByNetwork(p.Network)
	if err != nil {
		return false, err
	}

	wei, err := client.BalanceAt(ctx, common.HexToAddress(p.Address))
	if err != nil {
		return false, err
	}
	balance := decimal.NewFromBigInt(wei, 0).Div(weiInEther)

	value, err := decimal.NewFromString(p.Value)
	if err != nil {
		return false, fmt.Errorf("invalid balance threshold %q: %w", p.Value, err)
	}

	switch p.Op {
	case "gt", ">":
		return balance.GreaterThan(value), nil
	case "gte", ">=":
		return balance.GreaterThanOrEqual(value), nil
	case "lt", "<":
		return balance.LessThan(value), nil
	case "lte", "<=":
		return balance.LessThanOrEqual(value), nil
	case "eq", "==":
		return balance.Equal(value), nil
	default:
		return false, fmt.Errorf("unknown balance op %q", p.Op)
	}
}

type scheduleParams struct {
	IntervalSeconds int64 `json:"intervalSeconds"`
}

// ScheduleCondition passes when the trigger has not fired within the
// configured interval. It reads LastCallAt, which the engine stamps on
// every run that reaches the action phase.
type ScheduleCondition struct{}

func NewScheduleCondition() *ScheduleCondition {
	return &ScheduleCondition{}
}

func (c *ScheduleCondition) Check(_ context.Context, trigger *model.Trigger, params json.RawMessage) (bool, error) {
	var p scheduleParams
	if err := json.Unmarshal(params, &p); err != nil {
		return false, fmt.Errorf("decode schedule params: %w", err)
	}
	if p.IntervalSeconds <= 0 {
		return false, fmt.Errorf("schedule intervalSeconds must be positive")
	}

	if trigger.LastCallAt == nil {
		return true, nil
	}

	elapsed := time.Since(*trigger.LastCallAt)
	return elapsed >= time.Duration(p.IntervalSeconds)*time.Second, nil
}

type expressionParams struct {
	Network    string                 `json:"network"`
	Address    string                 `json:"address"`
	Expression string                 `json:"expression"`
	Vars       map[string]interface{} `json:"vars,omitempty"`
}

// ExpressionCondition evaluates a user supplied boolean expression over
// live chain variables (balance in ether, blockNumber) plus any constant
// vars from the condition params
type ExpressionCondition struct {
	networks ChainProvider
}

func NewExpressionCondition(networks ChainProvider) *ExpressionCondition {
	return &ExpressionCondition{networks: networks}
}

func (c *ExpressionCondition) Check(ctx context.Context, trigger *model.Trigger, params json.RawMessage) (bool, error) {
	var p expressionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return false, fmt.Errorf("decode expression params: %w", err)
	}
	if p.Expression == "" {
		return false, fmt.Errorf("expression is empty")
	}

	client, err := c.networks.ByNetwork(p.Network)
	if err != nil {
		return false, err
	}

	wei, err := client.BalanceAt(ctx, common.HexToAddress(p.Address))
	if err != nil {
		return false, err
	}
	block, err := client.CurrentBlock(ctx)
	if err != nil {
		return false, err
	}

	env := map[string]interface{}{
		"balance":     decimal.NewFromBigInt(wei, 0).Div(weiInEther).InexactFloat64(),
		"blockNumber": block,
	}
	// user vars never shadow the live chain variables
	for k, v := range p.Vars {
		if _, reserved := env[k]; !reserved {
			env[k] = v
		}
	}

	program, err := expr.Compile(p.Expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile expression: %w", err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("run expression: %w", err)
	}

	return out.(bool), nil
}
