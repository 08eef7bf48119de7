// Package engine is the campaign driver of the stateful fuzzer.
//
// A campaign runs Config.Runs independent attempts. Each attempt gets a
// fresh SUT instance from the harness factory, an empty ghost model and a
// private PRNG stream derived from (seed, run index). Steps are generated
// lazily: the generator proposes raw draws, the handler materializes them
// against the state left by the previous step, the SUT executes, the
// handler updates the ghost model and every invariant is checked. This
// happens after every step, rejected ones included.
//
// ARCHITECTURE:
//
// Attempts are independent and may run on parallel workers. Results are
// committed strictly in run-index order, so the verdict, the statistics
// and the reported failure do not depend on the worker count:
//
//	worker pool (errgroup)     committer (run order)
//	  attempt(run 0) ──────▶  charge rejects, tally stats
//	  attempt(run 1) ──────▶  on failure: shrink, replay, report
//	  attempt(run 2) ──────▶  on exhaustion or timeout: stop
//
// Shrinking and report diagnostics use Replay, which re-executes a fixed
// sequence from scratch and never trusts a previous execution.
//
// Step outcomes are values. SUT panics become reverts and predicate
// panics become violations, so no step ever aborts the campaign.
package engine
