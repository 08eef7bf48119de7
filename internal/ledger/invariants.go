package ledger

import (
	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/invariant"
	"github.com/roach88/statefuzz/internal/ir"
)

// Invariant ids, in evaluation order.
const (
	InvConservation       = "conservation"
	InvBalancesMatchGhost = "balances-match-ghost"
	InvBalancesSumToTotal = "balances-sum-to-total"
	InvNoNegativeBalance  = "no-negative-balance"
)

// Invariants returns the ledger battery for the actors in pool.
func Invariants(pool *actor.Pool) []invariant.Invariant {
	actors := pool.All()
	return []invariant.Invariant{
		{
			ID:       InvConservation,
			Severity: invariant.SeverityCritical,
			Predicate: func(view ir.IRObject, g ghost.Reader) bool {
				return g.Get(GhostDeposited)-g.Get(GhostWithdrawn) == view.IntOr("total", 0)
			},
			Message: `total={{.View.total}} but deposited={{index .Ghost "deposited"}} withdrawn={{index .Ghost "withdrawn"}}`,
		},
		{
			ID:       InvBalancesMatchGhost,
			Severity: invariant.SeverityHigh,
			Predicate: func(view ir.IRObject, g ghost.Reader) bool {
				for _, a := range actors {
					if viewBalance(view, a) != g.Get(ghost.Key(GhostBalance, a)) {
						return false
					}
				}
				return true
			},
			Message: "an account balance differs from the model",
		},
		{
			ID:       InvBalancesSumToTotal,
			Severity: invariant.SeverityHigh,
			Predicate: func(view ir.IRObject, _ ghost.Reader) bool {
				var sum int64
				for _, v := range view.Object("balances") {
					n, _ := v.(ir.IRInt)
					sum += int64(n)
				}
				return sum == view.IntOr("total", 0)
			},
			Message: "balances do not add up to total={{.View.total}}",
		},
		{
			ID:       InvNoNegativeBalance,
			Severity: invariant.SeverityMedium,
			Predicate: func(view ir.IRObject, _ ghost.Reader) bool {
				for _, v := range view.Object("balances") {
					if n, _ := v.(ir.IRInt); n < 0 {
						return false
					}
				}
				return true
			},
			Message: "an account balance is negative",
		},
	}
}
