// Package dispatch implements nearest-technician job assignment: proximity
// candidate selection, eligibility filtering, and the atomic finalize step
// that commits exactly one technician per job. Two assignment strategies are
// provided, a greedy nearest-pick and a negotiated notify-and-wait flow; both
// funnel through the same job-store transaction, so the at-most-one-assignment
// invariant holds regardless of strategy.
package dispatch
