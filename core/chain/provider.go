package chain

import (
	"fmt"
)

// Provider holds one client per configured network. It is constructed once
// at boot and passed by reference into every handler that touches a chain;
// there are no ambient singletons.
type Provider struct {
	clients   map[string]*Client
	explorers map[string]*Explorer
}

func NewProvider(networks []NetworkConfig, signerHexKey string) (*Provider, error) {
	p := &Provider{
		clients:   make(map[string]*Client, len(networks)),
		explorers: make(map[string]*Explorer),
	}

	for _, n := range networks {
		client, err := NewClient(n, signerHexKey)
		if err != nil {
			return nil, err
		}
		p.clients[n.ID] = client

		if n.ExplorerAPIURL != "" {
			explorer, err := NewExplorer(n.ExplorerAPIURL)
			if err != nil {
				return nil, err
			}
			p.explorers[n.ID] = explorer
		}
	}

	return p, nil
}

// ScanByNetwork returns the explorer API client for a network id
func (p *Provider) ScanByNetwork(id string) (*Explorer, error) {
	explorer, ok := p.explorers[id]
	if !ok {
		return nil, fmt.Errorf("network %q has no explorer configured", id)
	}
	return explorer, nil
}

// ByNetwork returns the client for a network id
func (p *Provider) ByNetwork(id string) (*Client, error) {
	client, ok := p.clients[id]
	if !ok {
		return nil, fmt.Errorf("undefined network %q", id)
	}
	return client, nil
}

// TxExplorerURL builds a transaction link on the network's block explorer
func (p *Provider) TxExplorerURL(network, txHash string) (string, error) {
	client, err := p.ByNetwork(network)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", client.Network().TxExplorerURL, txHash), nil
}
