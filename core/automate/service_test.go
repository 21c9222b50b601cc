package automate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistack/automate/core/testutil"
	"github.com/defistack/automate/model"
)

func newServiceFixture(t *testing.T) (*Service, *model.Wallet) {
	t.Helper()

	db := testutil.TestMustDB()
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, testutil.GetLogger())
	wallet := testutil.TestWallet()
	require.NoError(t, svc.SaveWallet(wallet))
	return svc, wallet
}

func TestCreateTriggerRejectsForeignWallet(t *testing.T) {
	svc, wallet := newServiceFixture(t)

	_, err := svc.CreateTrigger("someone-else", wallet.ID, "contractInteraction", nil, "stolen", true)
	assert.ErrorIs(t, err, ErrForeignWallet)

	_, err = svc.CreateTrigger(wallet.User, "no-such-wallet", "contractInteraction", nil, "ghost", true)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestMutationsCheckTriggerOwnership(t *testing.T) {
	svc, wallet := newServiceFixture(t)

	trigger, err := svc.CreateTrigger(wallet.User, wallet.ID, "contractInteraction", nil, "mine", true)
	require.NoError(t, err)
	condition, err := svc.CreateCondition(wallet.User, trigger.ID, "schedule", []byte(`{}`), nil)
	require.NoError(t, err)
	action, err := svc.CreateAction(wallet.User, trigger.ID, "notification", []byte(`{}`), nil)
	require.NoError(t, err)

	intruder := "someone-else"
	_, err = svc.UpdateTrigger(intruder, trigger.ID, nil, nil, nil)
	assert.ErrorIs(t, err, ErrForeignWallet)
	assert.ErrorIs(t, svc.DeleteTrigger(intruder, trigger.ID), ErrForeignWallet)

	_, err = svc.CreateCondition(intruder, trigger.ID, "schedule", []byte(`{}`), nil)
	assert.ErrorIs(t, err, ErrForeignWallet)
	_, err = svc.UpdateCondition(intruder, condition.ID, []byte(`{}`), nil)
	assert.ErrorIs(t, err, ErrForeignWallet)
	assert.ErrorIs(t, svc.DeleteCondition(intruder, condition.ID), ErrForeignWallet)

	_, err = svc.UpdateAction(intruder, action.ID, []byte(`{}`), nil)
	assert.ErrorIs(t, err, ErrForeignWallet)
	assert.ErrorIs(t, svc.DeleteAction(intruder, action.ID), ErrForeignWallet)
}

func TestDefaultPriorityAppendsToEnd(t *testing.T) {
	svc, wallet := newServiceFixture(t)

	trigger, err := svc.CreateTrigger(wallet.User, wallet.ID, "contractInteraction", nil, "ordered", true)
	require.NoError(t, err)

	first, err := svc.CreateCondition(wallet.User, trigger.ID, "schedule", []byte(`{}`), nil)
	require.NoError(t, err)
	second, err := svc.CreateCondition(wallet.User, trigger.ID, "schedule", []byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Priority)
	assert.Equal(t, 1, second.Priority)

	ten := 10
	explicit, err := svc.CreateCondition(wallet.User, trigger.ID, "schedule", []byte(`{}`), &ten)
	require.NoError(t, err)
	assert.Equal(t, 10, explicit.Priority)

	// actions count independently from conditions
	firstAction, err := svc.CreateAction(wallet.User, trigger.ID, "notification", []byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, firstAction.Priority)
}

func TestConditionsAreSortedByPriorityThenCreation(t *testing.T) {
	svc, wallet := newServiceFixture(t)

	trigger, err := svc.CreateTrigger(wallet.User, wallet.ID, "contractInteraction", nil, "sorted", true)
	require.NoError(t, err)

	five := 5
	one := 1
	late, err := svc.CreateCondition(wallet.User, trigger.ID, "schedule", []byte(`{}`), &five)
	require.NoError(t, err)
	early, err := svc.CreateCondition(wallet.User, trigger.ID, "schedule", []byte(`{}`), &one)
	require.NoError(t, err)

	list, err := svc.Conditions(trigger.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
}

func TestDeleteTriggerCascades(t *testing.T) {
	svc, wallet := newServiceFixture(t)

	trigger, err := svc.CreateTrigger(wallet.User, wallet.ID, "contractInteraction", nil, "doomed", true)
	require.NoError(t, err)
	condition, err := svc.CreateCondition(wallet.User, trigger.ID, "schedule", []byte(`{}`), nil)
	require.NoError(t, err)
	action, err := svc.CreateAction(wallet.User, trigger.ID, "notification", []byte(`{}`), nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTrigger(wallet.User, trigger.ID))

	_, err = svc.Trigger(trigger.ID)
	assert.ErrorIs(t, err, ErrTriggerNotFound)
	_, err = svc.findCondition(condition.ID)
	assert.ErrorIs(t, err, ErrConditionNotFound)
	_, err = svc.findAction(action.ID)
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestActiveTriggersExcludesInactive(t *testing.T) {
	svc, wallet := newServiceFixture(t)

	active, err := svc.CreateTrigger(wallet.User, wallet.ID, "contractInteraction", nil, "on", true)
	require.NoError(t, err)
	_, err = svc.CreateTrigger(wallet.User, wallet.ID, "contractInteraction", nil, "off", false)
	require.NoError(t, err)

	list, err := svc.ActiveTriggers()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)
}

func TestUpdateTriggerPartialMutation(t *testing.T) {
	svc, wallet := newServiceFixture(t)

	trigger, err := svc.CreateTrigger(wallet.User, wallet.ID, "contractInteraction", []byte(`{"a":1}`), "before", true)
	require.NoError(t, err)

	name := "after"
	updated, err := svc.UpdateTrigger(wallet.User, trigger.ID, nil, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.JSONEq(t, `{"a":1}`, string(updated.Params), "nil params leaves params untouched")
	assert.True(t, updated.Active)
}
