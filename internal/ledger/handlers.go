package ledger

import (
	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/handler"
	"github.com/roach88/statefuzz/internal/ir"
)

// MaxDeposit bounds a single deposit.
const MaxDeposit = 1_000_000

// Ghost keys.
const (
	GhostDeposited = "deposited"
	GhostWithdrawn = "withdrawn"
	GhostBalance   = "balance"
)

// Actions returns the ledger handlers in registration order.
func Actions() []handler.Action {
	return []handler.Action{depositAction(), withdrawAction(), transferAction()}
}

// balanceRange bounds an amount by the caller's ghost balance.
func balanceRange(s *handler.Scope) (int64, int64) {
	return 1, s.Ghost.Get(ghost.Key(GhostBalance, s.Actor))
}

func depositAction() handler.Action {
	return handler.Action{
		Name:   ActionDeposit,
		Weight: 2,
		Inputs: []handler.Input{handler.IntRange("amount", 1, MaxDeposit)},
		Update: func(g *ghost.State, s *handler.Scope, args, _ ir.IRObject) {
			amount := args.IntOr("amount", 0)
			g.Add(ghost.Key(GhostBalance, s.Actor), amount)
			g.Add(GhostDeposited, amount)
		},
	}
}

func withdrawAction() handler.Action {
	return handler.Action{
		Name:   ActionWithdraw,
		Weight: 2,
		Inputs: []handler.Input{handler.IntDynamic("amount", balanceRange, 1)},
		Update: func(g *ghost.State, s *handler.Scope, args, _ ir.IRObject) {
			amount := args.IntOr("amount", 0)
			g.Add(ghost.Key(GhostBalance, s.Actor), -amount)
			g.Add(GhostWithdrawn, amount)
		},
	}
}

func transferAction() handler.Action {
	return handler.Action{
		Name:   ActionTransfer,
		Weight: 1,
		Inputs: []handler.Input{
			handler.ActorInput("to"),
			handler.IntDynamic("amount", balanceRange, 1),
		},
		Precondition: func(s *handler.Scope, args ir.IRObject) bool {
			to, ok := s.ActorArg(args, "to")
			return ok && to != s.Actor
		},
		Update: func(g *ghost.State, s *handler.Scope, args, _ ir.IRObject) {
			to, ok := s.ActorArg(args, "to")
			if !ok {
				return
			}
			amount := args.IntOr("amount", 0)
			g.Add(ghost.Key(GhostBalance, s.Actor), -amount)
			g.Add(ghost.Key(GhostBalance, to), amount)
		},
	}
}

// viewBalance reads one account from the view; absent accounts are zero.
func viewBalance(view ir.IRObject, a actor.Actor) int64 {
	return view.Object("balances").IntOr(a.ID, 0)
}
