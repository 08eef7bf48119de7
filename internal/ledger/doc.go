// Package ledger is the reference target shipped with statefuzz: a small
// multi-account ledger, the handlers that drive it, and the invariants
// that must hold over it.
//
// The ledger can be built with a deliberate defect (WithWithdrawalBug) so
// the engine has something to find. The correct ledger is expected to
// pass any campaign.
//
// # View
//
// Observe returns
//
//	{
//	  "total":     IRInt,   // sum of all balances
//	  "deposited": IRInt,   // lifetime deposits
//	  "withdrawn": IRInt,   // lifetime withdrawals
//	  "balances":  {actorID: IRInt, ...}
//	}
//
// # Ghost keys
//
// The handlers keep "deposited", "withdrawn" and one "balance/actor-N"
// entry per actor.
package ledger
