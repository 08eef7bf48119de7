package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/sut"
)

func amount(n int64) ir.IRObject {
	return ir.IRObject{"amount": ir.IRInt(n)}
}

func TestLedger_DepositWithdrawTransfer(t *testing.T) {
	ctx := context.Background()
	alice, bob := actor.New(0), actor.New(1)
	l := New()

	out, err := l.Call(ctx, alice, ActionDeposit, amount(10))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(10), out["balance"])

	out, err = l.Call(ctx, alice, ActionWithdraw, amount(4))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(6), out["balance"])

	out, err = l.Call(ctx, alice, ActionTransfer, ir.IRObject{"to": ir.IRString(bob.ID), "amount": ir.IRInt(5)})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(1), out["balance"])

	view := l.Observe()
	assert.Equal(t, ir.IRInt(6), view["total"])
	assert.Equal(t, ir.IRInt(10), view["deposited"])
	assert.Equal(t, ir.IRInt(4), view["withdrawn"])
	assert.Equal(t, ir.IRObject{alice.ID: ir.IRInt(1), bob.ID: ir.IRInt(5)}, view["balances"])
}

func TestLedger_Reverts(t *testing.T) {
	alice, bob := actor.New(0), actor.New(1)

	tests := []struct {
		name   string
		action string
		args   ir.IRObject
		want   string
	}{
		{name: "missing amount", action: ActionDeposit, args: ir.IRObject{}, want: "amount is required"},
		{name: "zero amount", action: ActionDeposit, args: amount(0), want: "must be positive"},
		{name: "overdraw", action: ActionWithdraw, args: amount(11), want: "insufficient balance: 10 < 11"},
		{name: "transfer overdraw", action: ActionTransfer, args: ir.IRObject{"to": ir.IRString(bob.ID), "amount": ir.IRInt(20)}, want: "insufficient balance"},
		{name: "self transfer", action: ActionTransfer, args: ir.IRObject{"to": ir.IRString(alice.ID), "amount": ir.IRInt(1)}, want: "cannot transfer to self"},
		{name: "no recipient", action: ActionTransfer, args: amount(1), want: "recipient is required"},
		{name: "unknown", action: "mint", args: amount(1), want: `unknown action "mint"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			_, err := l.Call(context.Background(), alice, ActionDeposit, amount(10))
			require.NoError(t, err)
			before := l.Observe()

			_, err = l.Call(context.Background(), alice, tt.action, tt.args)
			require.Error(t, err)
			assert.True(t, sut.IsRevert(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, before, l.Observe(), "a revert leaves the ledger untouched")
		})
	}
}

func TestLedger_WithdrawalBug(t *testing.T) {
	ctx := context.Background()
	alice, bob := actor.New(0), actor.New(1)
	l := New(WithWithdrawalBug(3))

	_, err := l.Call(ctx, alice, ActionDeposit, amount(10))
	require.NoError(t, err)
	_, err = l.Call(ctx, bob, ActionDeposit, amount(10))
	require.NoError(t, err)

	_, err = l.Call(ctx, alice, ActionWithdraw, amount(1))
	require.NoError(t, err)
	_, err = l.Call(ctx, bob, ActionWithdraw, amount(1))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(18), l.Observe()["total"])

	// The third withdrawal, by any account, is recorded but not taken out.
	_, err = l.Call(ctx, alice, ActionWithdraw, amount(1))
	require.NoError(t, err)
	view := l.Observe()
	assert.Equal(t, ir.IRInt(18), view["total"])
	assert.Equal(t, ir.IRInt(3), view["withdrawn"])
	assert.Equal(t, ir.IRInt(9), view.Object("balances")[alice.ID])

	_, err = l.Call(ctx, bob, ActionWithdraw, amount(2))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(9), l.Observe().Object("balances")[bob.ID])
}

func TestLedger_BugDisabled(t *testing.T) {
	l := New(WithWithdrawalBug(0))
	a := actor.New(0)
	_, err := l.Call(context.Background(), a, ActionDeposit, amount(5))
	require.NoError(t, err)
	for range 5 {
		_, err = l.Call(context.Background(), a, ActionWithdraw, amount(1))
		require.NoError(t, err)
	}
	assert.Equal(t, ir.IRInt(0), l.Observe()["total"])
}

func TestNewFactory_IndependentInstances(t *testing.T) {
	f := NewFactory()
	a, err := f.New(context.Background())
	require.NoError(t, err)
	b, err := f.New(context.Background())
	require.NoError(t, err)

	_, err = a.Call(context.Background(), actor.New(0), ActionDeposit, amount(7))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(7), a.Observe()["total"])
	assert.Equal(t, ir.IRInt(0), b.Observe()["total"])
}

func TestInvariants_Order(t *testing.T) {
	pool, err := actor.NewPool(2)
	require.NoError(t, err)

	var ids []string
	for _, inv := range Invariants(pool) {
		ids = append(ids, inv.ID)
	}
	assert.Equal(t, []string{InvConservation, InvBalancesMatchGhost, InvBalancesSumToTotal, InvNoNegativeBalance}, ids)
}

func TestInvariants_Predicates(t *testing.T) {
	pool, err := actor.NewPool(2)
	require.NoError(t, err)
	a0, a1 := pool.All()[0], pool.All()[1]

	view := func(total int64, b0, b1 int64) ir.IRObject {
		return ir.IRObject{
			"total":    ir.IRInt(total),
			"balances": ir.IRObject{a0.ID: ir.IRInt(b0), a1.ID: ir.IRInt(b1)},
		}
	}
	model := func(dep, wd, b0, b1 int64) *ghost.State {
		g := ghost.New(nil)
		g.Add(GhostDeposited, dep)
		g.Add(GhostWithdrawn, wd)
		g.Add(ghost.Key(GhostBalance, a0), b0)
		g.Add(ghost.Key(GhostBalance, a1), b1)
		return g
	}

	tests := []struct {
		name   string
		view   ir.IRObject
		ghost  *ghost.State
		broken string
	}{
		{name: "consistent", view: view(10, 4, 6), ghost: model(12, 2, 4, 6)},
		{name: "total drift", view: view(11, 4, 7), ghost: model(12, 2, 4, 7), broken: InvConservation},
		{name: "balance drift", view: view(10, 5, 5), ghost: model(12, 2, 4, 6), broken: InvBalancesMatchGhost},
		{name: "sum mismatch", view: view(10, 4, 7), ghost: model(12, 2, 4, 7), broken: InvBalancesSumToTotal},
		{name: "negative", view: view(10, -1, 11), ghost: model(12, 2, -1, 11), broken: InvNoNegativeBalance},
		{name: "empty ledger", view: ir.IRObject{"total": ir.IRInt(0), "balances": ir.IRObject{}}, ghost: ghost.New(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, inv := range Invariants(pool) {
				holds := inv.Predicate(tt.view, tt.ghost)
				assert.Equal(t, inv.ID != tt.broken, holds, inv.ID)
			}
		})
	}
}
