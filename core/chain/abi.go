package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the contracts the core reads. Only the methods
// we call are declared, the rest of each contract is irrelevant here.

const masterChefABI = `[
	{"inputs":[],"name":"poolLength","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"","type":"uint256"}],"name":"poolInfo","outputs":[{"internalType":"address","name":"lpToken","type":"address"},{"internalType":"uint256","name":"allocPoint","type":"uint256"},{"internalType":"uint256","name":"lastRewardBlock","type":"uint256"},{"internalType":"uint256","name":"accRewardPerShare","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const uniswapV2PairABI = `[
	{"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"token1","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const erc20ABI = `[
	{"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

const automateABI = `[
	{"inputs":[],"name":"run","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	parsedMasterChefABI abi.ABI
	parsedPairABI       abi.ABI
	parsedERC20ABI      abi.ABI
	parsedAutomateABI   abi.ABI
)

func init() {
	parsedMasterChefABI = mustParseABI(masterChefABI)
	parsedPairABI = mustParseABI(uniswapV2PairABI)
	parsedERC20ABI = mustParseABI(erc20ABI)
	parsedAutomateABI = mustParseABI(automateABI)
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
