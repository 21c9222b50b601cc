package pools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistack/automate/core/testutil"
	"github.com/defistack/automate/model"
)

func newPoolsService(t *testing.T) *Service {
	t.Helper()
	db := testutil.TestMustDB()
	t.Cleanup(func() { db.Close() })
	return NewService(db, testutil.GetLogger())
}

func TestEnsureProtocolIsIdempotent(t *testing.T) {
	svc := newPoolsService(t)

	first, err := svc.EnsureProtocol("PancakeSwap", "BSC farming", "masterChefV2")
	require.NoError(t, err)
	second, err := svc.EnsureProtocol("PancakeSwap", "different description", "otherAdapter")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "BSC farming", second.Description, "the existing row wins")
}

func TestCreateContractNormalizesAddress(t *testing.T) {
	svc := newPoolsService(t)
	protocol, err := svc.EnsureProtocol("PancakeSwap", "", "masterChefV2")
	require.NoError(t, err)

	created, err := svc.CreateContract(&model.Contract{
		Protocol: protocol.ID,
		Network:  "56",
		Address:  "0x0eD7e52944161450477ee417DE9Cd3a859b14fD0",
		Name:     "CAKE/WBNB LP",
	})
	require.NoError(t, err)
	assert.Equal(t, "0x0ed7e52944161450477ee417de9cd3a859b14fd0", created.Address)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreateContractUpsertsByAddress(t *testing.T) {
	svc := newPoolsService(t)
	protocol, err := svc.EnsureProtocol("PancakeSwap", "", "masterChefV2")
	require.NoError(t, err)

	first, err := svc.CreateContract(&model.Contract{
		Protocol: protocol.ID,
		Network:  "56",
		Address:  "0xAAaa000000000000000000000000000000000001",
		Name:     "old name",
	})
	require.NoError(t, err)
	require.NoError(t, svc.HideContract(first))

	again, err := svc.CreateContract(&model.Contract{
		Protocol: protocol.ID,
		Network:  "56",
		Address:  "0xaaAA000000000000000000000000000000000001",
		Name:     "new name",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "new name", again.Name)
	assert.False(t, again.Hidden, "re-registering a hidden address revives it")

	list, err := svc.Contracts(protocol.ID, "56", true)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestContractsFiltersByNetworkAndHidden(t *testing.T) {
	svc := newPoolsService(t)
	protocol, err := svc.EnsureProtocol("PancakeSwap", "", "masterChefV2")
	require.NoError(t, err)

	visible, err := svc.CreateContract(&model.Contract{
		Protocol: protocol.ID, Network: "56",
		Address: "0xaa00000000000000000000000000000000000001", Name: "bsc pool",
	})
	require.NoError(t, err)
	hidden, err := svc.CreateContract(&model.Contract{
		Protocol: protocol.ID, Network: "56",
		Address: "0xaa00000000000000000000000000000000000002", Name: "gone pool",
	})
	require.NoError(t, err)
	require.NoError(t, svc.HideContract(hidden))
	_, err = svc.CreateContract(&model.Contract{
		Protocol: protocol.ID, Network: "1",
		Address: "0xaa00000000000000000000000000000000000003", Name: "mainnet pool",
	})
	require.NoError(t, err)

	list, err := svc.Contracts(protocol.ID, "56", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, visible.ID, list[0].ID)

	all, err := svc.Contracts(protocol.ID, "56", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestContractByID(t *testing.T) {
	svc := newPoolsService(t)
	protocol, err := svc.EnsureProtocol("PancakeSwap", "", "masterChefV2")
	require.NoError(t, err)

	created, err := svc.CreateContract(&model.Contract{
		Protocol: protocol.ID, Network: "56",
		Address: "0xaa00000000000000000000000000000000000001", Name: "pool",
	})
	require.NoError(t, err)

	found, err := svc.ContractByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Address, found.Address)

	_, err = svc.ContractByID("01JMISSING")
	assert.ErrorIs(t, err, ErrContractNotFound)
}
