package solver

import "context"

// BoolVar is an opaque handle to a backend boolean decision variable.
type BoolVar interface{}

// LinearTerm is one coefficient-variable pair in a weighted linear sum.
type LinearTerm struct {
	Var   BoolVar
	Coeff int64
}

// Solution exposes the backend's chosen truth assignment once a Solve
// call returns Optimal or Feasible.
type Solution interface {
	BooleanValue(v BoolVar) bool
}

// BackendOptions carries the parameters Solve forwards into the backend.
type BackendOptions struct {
	TimeBudgetSeconds int
	Workers           int
}

// Backend is the minimal surface the Timetable Solver depends on: boolean
// variables, bounded weighted linear constraints, and minimization of a
// linear expression with a time limit and incumbent retrieval. Any CP/SAT
// or ILP library exposing these operations can back the driver; see
// orToolsBackend for the concrete implementation grounded on
// github.com/google/or-tools/sat.
type Backend interface {
	// NewBoolVar creates a fresh boolean decision variable.
	NewBoolVar(name string) BoolVar

	// AddLinearConstraint posts lowerBound <= Σ coeff·var <= upperBound.
	// Use -InfBound/InfBound for an unbounded side.
	AddLinearConstraint(terms []LinearTerm, lowerBound, upperBound int64)

	// SetObjective replaces the minimization objective with Σ coeff·var.
	SetObjective(terms []LinearTerm)

	// Solve runs the backend search under the given time budget and
	// worker count, returning the outcome status and, for Optimal or
	// Feasible, the incumbent solution.
	Solve(ctx context.Context, opts BackendOptions) (Status, Solution, error)
}

// InfBound is the sentinel used in place of +/-infinity in
// AddLinearConstraint calls; it is large enough to never bind given the
// small integer coefficients the Timetable Solver emits.
const InfBound int64 = 1 << 30

// reifyAnd posts the three linear implications equivalent to
// result <=> (a ∧ b), per §9's reification fallback:
// result <= a, result <= b, result >= a + b - 1.
func reifyAnd(b Backend, a, c BoolVar, name string) BoolVar {
	result := b.NewBoolVar(name)
	b.AddLinearConstraint([]LinearTerm{{a, 1}, {result, -1}}, 0, InfBound)
	b.AddLinearConstraint([]LinearTerm{{c, 1}, {result, -1}}, 0, InfBound)
	b.AddLinearConstraint([]LinearTerm{{a, 1}, {c, 1}, {result, -1}}, -InfBound, 1)
	return result
}
