package solver

import (
	"context"

	"github.com/google/or-tools/sat"
)

// orToolsBackend implements Backend on top of the CP-SAT solver, the only
// constraint-solving library exercised anywhere in the retrieved corpus
// (see the session-scheduling example this package is grounded on).
type orToolsBackend struct {
	model *sat.CpModel
}

// NewOrToolsBackend constructs a fresh CP-SAT model backend. Each solve
// attempt gets its own backend instance; the type carries no state beyond
// the model under construction.
func NewOrToolsBackend() Backend {
	return &orToolsBackend{model: sat.NewCpModel()}
}

func (b *orToolsBackend) NewBoolVar(name string) BoolVar {
	return b.model.NewBoolVar(name)
}

func (b *orToolsBackend) AddLinearConstraint(terms []LinearTerm, lowerBound, upperBound int64) {
	expr := b.model.NewLinearExpr()
	for _, t := range terms {
		expr.AddTerm(t.Var.(*sat.BoolVar), t.Coeff)
	}
	b.model.AddLinearConstraintExpr(expr, lowerBound, upperBound)
}

func (b *orToolsBackend) SetObjective(terms []LinearTerm) {
	expr := b.model.NewLinearExpr()
	for _, t := range terms {
		expr.AddTerm(t.Var.(*sat.BoolVar), t.Coeff)
	}
	b.model.Minimise(expr)
}

func (b *orToolsBackend) Solve(ctx context.Context, opts BackendOptions) (Status, Solution, error) {
	cpSolver := sat.NewCpSolver()
	cpSolver.MaxTimeInSeconds = float64(opts.TimeBudgetSeconds)
	cpSolver.NumSearchWorkers = opts.Workers

	done := make(chan sat.CpSolverStatus, 1)
	go func() { done <- cpSolver.Solve(b.model) }()

	select {
	case <-ctx.Done():
		// Mid-search cancellation is not required by the spec; report
		// Unknown and let the caller's context error surface separately.
		return StatusUnknown, nil, nil
	case status := <-done:
		switch status {
		case sat.Optimal:
			return StatusOptimal, orToolsSolution{cpSolver}, nil
		case sat.Feasible:
			return StatusFeasible, orToolsSolution{cpSolver}, nil
		case sat.Infeasible:
			return StatusInfeasible, nil, nil
		default:
			return StatusUnknown, nil, nil
		}
	}
}

type orToolsSolution struct {
	solver *sat.CpSolver
}

func (s orToolsSolution) BooleanValue(v BoolVar) bool {
	return s.solver.BooleanValue(v.(*sat.BoolVar))
}
