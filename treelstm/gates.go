package treelstm

import (
	"github.com/gorgonia/neuralccg/syntax"
	"gorgonia.org/vecf32"
)

// Gates are the realized gate activations of one cell. Encoder cells only have
// an input and a (left) forget gate.
type Gates struct {
	Input       []float32
	LeftForget  []float32
	RightForget []float32
}

// InitialGates are the encoder gates at every word, for both directions.
type InitialGates struct {
	Forward  []Gates
	Backward []Gates
}

// Sum returns input + left + right elementwise.
func (g Gates) Sum() []float32 {
	retVal := make([]float32, len(g.Input))
	copy(retVal, g.Input)
	if len(g.LeftForget) == len(retVal) {
		vecf32.Add(retVal, g.LeftForget)
	}
	if len(g.RightForget) == len(retVal) {
		vecf32.Add(retVal, g.RightForget)
	}
	return retVal
}

func mean(a []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vecf32.Sum(a) / float32(len(a))
}

// Means returns the mean activation of each gate.
func (g Gates) Means() (input, left, right float32) {
	return mean(g.Input), mean(g.LeftForget), mean(g.RightForget)
}

// Influence summarizes how much each node under root contributes to the root's
// cell. A node's influence is the mean of the elementwise product of its input
// gate with every forget gate on the path from root down to it.
//
// nodes and gates are indexed by scoring order.
func Influence(root int, nodes []syntax.Parse, gates []Gates) map[int]float32 {
	retVal := make(map[int]float32)
	if root < 0 || root >= len(nodes) || len(gates) != len(nodes) {
		return retVal
	}
	var visit func(i int, path []float32)
	visit = func(i int, path []float32) {
		g := gates[i]
		here := make([]float32, len(path))
		copy(here, path)
		vecf32.Mul(here, g.Input)
		retVal[i] = mean(here)

		// children are scored before their parents
		child := func(c int, forget []float32) {
			if c < 0 || c >= i {
				return
			}
			visit(c, product(path, forget))
		}
		children := nodes[i].Children
		switch len(children) {
		case 1:
			child(children[0], g.RightForget)
		case 2:
			child(children[0], g.LeftForget)
			child(children[1], g.RightForget)
		}
	}
	ones := make([]float32, len(gates[root].Input))
	for i := range ones {
		ones[i] = 1
	}
	visit(root, ones)
	return retVal
}

func product(a, b []float32) []float32 {
	retVal := make([]float32, len(a))
	copy(retVal, a)
	vecf32.Mul(retVal, b)
	return retVal
}
