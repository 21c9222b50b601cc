package automate

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistack/automate/model"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestEthereumBalanceConditionOps(t *testing.T) {
	provider := &fakeNetworks{client: &fakeNetwork{balance: ether(5)}}
	cond := NewEthereumBalanceCondition(provider)
	trigger := &model.Trigger{ID: "t1"}

	tests := []struct {
		op    string
		value string
		want  bool
	}{
		{"gt", "4", true},
		{"gt", "5", false},
		{">", "4", true},
		{"gte", "5", true},
		{">=", "6", false},
		{"lt", "6", true},
		{"<", "5", false},
		{"lte", "5", true},
		{"<=", "4", false},
		{"eq", "5", true},
		{"==", "4.999", false},
	}

	for _, tt := range tests {
		t.Run(tt.op+" "+tt.value, func(t *testing.T) {
			params, err := json.Marshal(ethereumBalanceParams{
				Network: "1",
				Address: "0xabc",
				Op:      tt.op,
				Value:   tt.value,
			})
			require.NoError(t, err)

			got, err := cond.Check(context.Background(), trigger, params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEthereumBalanceConditionRejectsBadInput(t *testing.T) {
	provider := &fakeNetworks{client: &fakeNetwork{balance: ether(1)}}
	cond := NewEthereumBalanceCondition(provider)
	trigger := &model.Trigger{ID: "t1"}

	_, err := cond.Check(context.Background(), trigger, []byte(`{"network":"1","address":"0xabc","op":"between","value":"1"}`))
	assert.ErrorContains(t, err, "unknown balance op")

	_, err = cond.Check(context.Background(), trigger, []byte(`{"network":"1","address":"0xabc","op":"gt","value":"lots"}`))
	assert.ErrorContains(t, err, "invalid balance threshold")
}

func TestScheduleCondition(t *testing.T) {
	cond := NewScheduleCondition()
	params := []byte(`{"intervalSeconds":3600}`)

	never := &model.Trigger{ID: "t1"}
	ok, err := cond.Check(context.Background(), never, params)
	require.NoError(t, err)
	assert.True(t, ok, "a trigger that never fired is always due")

	recent := time.Now().Add(-time.Minute)
	ok, err = cond.Check(context.Background(), &model.Trigger{ID: "t1", LastCallAt: &recent}, params)
	require.NoError(t, err)
	assert.False(t, ok)

	stale := time.Now().Add(-2 * time.Hour)
	ok, err = cond.Check(context.Background(), &model.Trigger{ID: "t1", LastCallAt: &stale}, params)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = cond.Check(context.Background(), never, []byte(`{"intervalSeconds":0}`))
	assert.ErrorContains(t, err, "must be positive")
}

func TestExpressionCondition(t *testing.T) {
	provider := &fakeNetworks{client: &fakeNetwork{balance: ether(12), block: 500}}
	cond := NewExpressionCondition(provider)
	trigger := &model.Trigger{ID: "t1"}

	check := func(t *testing.T, raw string) bool {
		t.Helper()
		got, err := cond.Check(context.Background(), trigger, []byte(raw))
		require.NoError(t, err)
		return got
	}

	assert.True(t, check(t, `{"network":"1","address":"0xabc","expression":"balance > 10 && blockNumber >= 500"}`))
	assert.False(t, check(t, `{"network":"1","address":"0xabc","expression":"balance < 10"}`))

	// constant vars from params are visible to the expression
	assert.True(t, check(t, `{"network":"1","address":"0xabc","expression":"balance > threshold","vars":{"threshold":11.5}}`))

	// live chain variables cannot be shadowed by user vars
	assert.True(t, check(t, `{"network":"1","address":"0xabc","expression":"balance > 10","vars":{"balance":0}}`))
}

func TestExpressionConditionRejectsNonBoolean(t *testing.T) {
	provider := &fakeNetworks{client: &fakeNetwork{balance: ether(1), block: 1}}
	cond := NewExpressionCondition(provider)

	_, err := cond.Check(context.Background(), &model.Trigger{ID: "t1"},
		[]byte(`{"network":"1","address":"0xabc","expression":"balance + 1"}`))
	assert.ErrorContains(t, err, "compile expression")

	_, err = cond.Check(context.Background(), &model.Trigger{ID: "t1"},
		[]byte(`{"network":"1","address":"0xabc","expression":""}`))
	assert.ErrorContains(t, err, "expression is empty")
}
