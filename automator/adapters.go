package automator

import (
	"github.com/defistack/automate/core/automate"
	"github.com/defistack/automate/core/chain"
	"github.com/defistack/automate/core/pools"
)

// The chain provider hands out concrete *chain.Client values while the
// strategy and scanner packages each declare the narrow surface they need.
// These adapters do the narrowing.

type automateChainProvider struct {
	provider *chain.Provider
}

func (p *automateChainProvider) ByNetwork(id string) (automate.NetworkClient, error) {
	return p.provider.ByNetwork(id)
}

type poolsChainProvider struct {
	provider *chain.Provider
}

func (p *poolsChainProvider) ByNetwork(id string) (pools.ChainReader, error) {
	return p.provider.ByNetwork(id)
}

type explorerProvider struct {
	provider *chain.Provider
}

func (p *explorerProvider) ScanByNetwork(network string) (automate.ABIResolver, error) {
	return p.provider.ScanByNetwork(network)
}
