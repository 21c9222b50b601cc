package pools

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
	"github.com/defistack/automate/storage/schema"
)

var (
	ErrProtocolNotFound = errors.New("protocol not found")
	ErrContractNotFound = errors.New("contract not found")
)

// Service owns the protocol and contract catalogue
type Service struct {
	db     storage.Storage
	logger logger.Logger
}

func NewService(db storage.Storage, lg logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.EnsureLogger(lg),
	}
}

// EnsureProtocol returns the protocol with the given name, creating it
// when absent
func (s *Service) EnsureProtocol(name, description, adapter string) (*model.Protocol, error) {
	idBytes, err := s.db.GetKey(schema.ProtocolNameIndexKey(name))
	if err == nil {
		return s.Protocol(string(idBytes))
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, err
	}

	p := &model.Protocol{
		ID:          model.GenerateID(),
		Name:        name,
		Description: description,
		Adapter:     adapter,
		CreatedAt:   time.Now(),
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	if err := s.db.Set(schema.ProtocolKey(p.ID), b); err != nil {
		return nil, err
	}
	if err := s.db.Set(schema.ProtocolNameIndexKey(name), []byte(p.ID)); err != nil {
		return nil, err
	}

	s.logger.Info("protocol created", "protocol_id", p.ID, "name", name)
	return p, nil
}

func (s *Service) Protocol(id string) (*model.Protocol, error) {
	b, err := s.db.GetKey(schema.ProtocolKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrProtocolNotFound
		}
		return nil, err
	}

	p := &model.Protocol{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Contracts lists a protocol's catalogue rows for one network. Hidden
// rows are excluded unless includeHidden is set.
func (s *Service) Contracts(protocolID, network string, includeHidden bool) ([]*model.Contract, error) {
	kvs, err := s.db.GetByPrefix(schema.ContractPrefix(protocolID))
	if err != nil {
		return nil, err
	}

	var list []*model.Contract
	for _, kv := range kvs {
		c := &model.Contract{}
		if err := json.Unmarshal(kv.Value, c); err != nil {
			return nil, err
		}
		if c.Network != network {
			continue
		}
		if c.Hidden && !includeHidden {
			continue
		}
		list = append(list, c)
	}
	return list, nil
}

// ContractByID resolves a catalogue row by id across all protocols
func (s *Service) ContractByID(id string) (*model.Contract, error) {
	kvs, err := s.db.GetByPrefix([]byte("ct:"))
	if err != nil {
		return nil, err
	}

	for _, kv := range kvs {
		c := &model.Contract{}
		if err := json.Unmarshal(kv.Value, c); err != nil {
			return nil, err
		}
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrContractNotFound
}

// CreateContract upserts a catalogue row keyed by (protocol, network,
// address). Re-registering a known address revives it instead of
// duplicating: the address is unique per network and protocol.
func (s *Service) CreateContract(c *model.Contract) (*model.Contract, error) {
	c.Address = model.NormalizeAddress(c.Address)

	existing, err := s.contractByAddress(c.Protocol, c.Network, c.Address)
	if err != nil && !errors.Is(err, ErrContractNotFound) {
		return nil, err
	}

	if existing != nil {
		existing.Hidden = false
		existing.Name = c.Name
		existing.Adapter = c.Adapter
		existing.Automate = c.Automate
		if err := s.saveContract(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if c.ID == "" {
		c.ID = model.GenerateID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	if err := s.saveContract(c); err != nil {
		return nil, err
	}

	s.logger.Info("contract catalogued",
		"contract_id", c.ID, "protocol", c.Protocol, "network", c.Network, "address", c.Address, "name", c.Name)
	return c, nil
}

// UpdateContract persists in-place mutations of a catalogue row
func (s *Service) UpdateContract(c *model.Contract) error {
	return s.saveContract(c)
}

// HideContract soft-deletes a catalogue row; rows are never physically
// removed by reconciliation
func (s *Service) HideContract(c *model.Contract) error {
	c.Hidden = true
	return s.saveContract(c)
}

func (s *Service) saveContract(c *model.Contract) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Set(schema.ContractKey(c.Protocol, c.ID), b)
}

func (s *Service) contractByAddress(protocolID, network, address string) (*model.Contract, error) {
	all, err := s.Contracts(protocolID, network, true)
	if err != nil {
		return nil, err
	}

	address = model.NormalizeAddress(address)
	for _, c := range all {
		if c.Address == address {
			return c, nil
		}
	}
	return nil, ErrContractNotFound
}
