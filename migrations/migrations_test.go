package migrations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistack/automate/core/testutil"
	"github.com/defistack/automate/model"
	"github.com/defistack/automate/storage/schema"
)

func TestNormalizeContractAddressesLowerCasesRows(t *testing.T) {
	db := testutil.TestMustDB()
	defer db.Close()

	mixed := &model.Contract{
		ID:       "ct-mixed",
		Protocol: "pancakeswap",
		Network:  "56",
		Address:  "0xD7050816337a3F8f690F8083B5Ff8019D50c0E50",
	}
	clean := &model.Contract{
		ID:       "ct-clean",
		Protocol: "pancakeswap",
		Network:  "56",
		Address:  "0x0ed7e52944161450477ee417de9cd3a859b14fd0",
	}
	for _, ct := range []*model.Contract{mixed, clean} {
		data, err := json.Marshal(ct)
		require.NoError(t, err)
		require.NoError(t, db.Set(schema.ContractKey(ct.Protocol, ct.ID), data))
	}
	// rows that do not decode are left alone
	require.NoError(t, db.Set([]byte("ct:garbage"), []byte("not json")))

	updated, err := NormalizeContractAddresses(db)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	raw, err := db.GetKey(schema.ContractKey(mixed.Protocol, mixed.ID))
	require.NoError(t, err)
	var got model.Contract
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "0xd7050816337a3f8f690f8083b5ff8019d50c0e50", got.Address)

	// idempotent on a second run
	updated, err = NormalizeContractAddresses(db)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}
