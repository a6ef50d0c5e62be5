package treelstm

import (
	"strings"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Optimizer names accepted by NewSolver.
const (
	Adam     = "adam"
	Momentum = "momentum"
	SGD      = "sgd"
)

// NewSolver returns the named solver. A zero learn rate picks the default of
// the solver.
func NewSolver(name string, learnRate float64) (G.Solver, error) {
	var opts []G.SolverOpt
	if learnRate > 0 {
		opts = append(opts, G.WithLearnRate(learnRate))
	}
	switch strings.ToLower(name) {
	case Adam:
		return G.NewAdamSolver(opts...), nil
	case Momentum:
		if learnRate <= 0 {
			opts = append(opts, G.WithLearnRate(0.01))
		}
		return G.NewMomentum(opts...), nil
	case SGD, "vanilla":
		if learnRate <= 0 {
			opts = append(opts, G.WithLearnRate(0.1))
		}
		return G.NewVanillaSolver(opts...), nil
	}
	return nil, errors.Wrapf(ErrConfiguration, "unknown optimizer %q", name)
}
