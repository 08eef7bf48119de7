package ledger

import (
	"context"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/sut"
)

// Action names understood by the ledger.
const (
	ActionDeposit  = "deposit"
	ActionWithdraw = "withdraw"
	ActionTransfer = "transfer"
)

// Ledger is an in-memory account ledger keyed by actor id.
type Ledger struct {
	balances  map[string]int64
	total     int64
	deposited int64
	withdrawn int64

	// withdrawals counts successful withdrawals across all accounts.
	withdrawals int
	// bugFrom, when positive, is the withdrawal from which the balance
	// is no longer decremented.
	bugFrom int
}

var _ sut.SUT = (*Ledger)(nil)

// Option configures a Ledger.
type Option func(*Ledger)

// WithWithdrawalBug makes the n-th and every later successful withdrawal
// record the withdrawal without taking the money out of the account.
// n <= 0 disables the bug.
func WithWithdrawalBug(n int) Option {
	return func(l *Ledger) {
		l.bugFrom = n
	}
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{balances: make(map[string]int64)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewFactory returns a factory that builds a fresh ledger per attempt.
func NewFactory(opts ...Option) sut.Factory {
	return sut.FactoryFunc(func(context.Context) (sut.SUT, error) {
		return New(opts...), nil
	})
}

// Call implements sut.SUT.
func (l *Ledger) Call(_ context.Context, caller actor.Actor, action string, args ir.IRObject) (ir.IRObject, error) {
	amount, ok := args.Int("amount")
	if !ok {
		return nil, sut.Revertf("%s: amount is required", action)
	}
	if amount <= 0 {
		return nil, sut.Revertf("%s: amount must be positive, got %d", action, amount)
	}

	switch action {
	case ActionDeposit:
		l.balances[caller.ID] += amount
		l.total += amount
		l.deposited += amount

	case ActionWithdraw:
		if l.balances[caller.ID] < amount {
			return nil, sut.Revertf("insufficient balance: %d < %d", l.balances[caller.ID], amount)
		}
		l.withdrawals++
		l.withdrawn += amount
		if l.bugFrom <= 0 || l.withdrawals < l.bugFrom {
			l.balances[caller.ID] -= amount
			l.total -= amount
		}

	case ActionTransfer:
		to, ok := args.String("to")
		if !ok || to == "" {
			return nil, sut.Revertf("transfer: recipient is required")
		}
		if to == caller.ID {
			return nil, sut.Revertf("transfer: cannot transfer to self")
		}
		if l.balances[caller.ID] < amount {
			return nil, sut.Revertf("insufficient balance: %d < %d", l.balances[caller.ID], amount)
		}
		l.balances[caller.ID] -= amount
		l.balances[to] += amount

	default:
		return nil, sut.Revertf("unknown action %q", action)
	}

	return ir.IRObject{"balance": ir.IRInt(l.balances[caller.ID])}, nil
}

// Observe implements sut.SUT.
func (l *Ledger) Observe() ir.IRObject {
	balances := make(ir.IRObject, len(l.balances))
	for id, b := range l.balances {
		balances[id] = ir.IRInt(b)
	}
	return ir.IRObject{
		"total":     ir.IRInt(l.total),
		"deposited": ir.IRInt(l.deposited),
		"withdrawn": ir.IRInt(l.withdrawn),
		"balances":  balances,
	}
}
