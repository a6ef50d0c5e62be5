package treelstm

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

type maebe struct {
	err error
}

// generic monad... may be useful
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// affine computes Wx+b.
func (m *maebe) affine(w, b, x *G.Node) *G.Node {
	wx := m.do(func() (*G.Node, error) { return G.Mul(w, x) })
	return m.do(func() (*G.Node, error) { return G.Add(wx, b) })
}

func (m *maebe) sigmoid(a *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Sigmoid(a) })
}

func (m *maebe) tanh(a *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Tanh(a) })
}

func (m *maebe) add(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Add(a, b) })
}

func (m *maebe) sub(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Sub(a, b) })
}

func (m *maebe) hadamard(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.HadamardProd(a, b) })
}

func (m *maebe) mul(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Mul(a, b) })
}

func (m *maebe) concat(nodes ...*G.Node) *G.Node {
	if m.err != nil {
		return nil
	}
	return m.do(func() (*G.Node, error) { return G.Concat(0, nodes...) })
}

// sum adds up nodes left to right.
func (m *maebe) sum(nodes ...*G.Node) *G.Node {
	retVal := nodes[0]
	for _, n := range nodes[1:] {
		retVal = m.add(retVal, n)
	}
	return retVal
}

// negSoftplus computes -log(1+exp(a)).
func (m *maebe) negSoftplus(a *G.Node) *G.Node {
	sp := m.do(func() (*G.Node, error) { return G.Softplus(a) })
	return m.do(func() (*G.Node, error) { return G.Neg(sp) })
}

// logsumexp computes log(Σexp(x)) over scalar nodes. shift is subtracted before
// exponentiating and added back after, and should be the largest of the
// forward values of nodes.
func (m *maebe) logsumexp(shift *G.Node, nodes ...*G.Node) *G.Node {
	exps := make([]*G.Node, len(nodes))
	for i, n := range nodes {
		shifted := m.sub(n, shift)
		exps[i] = m.do(func() (*G.Node, error) { return G.Exp(shifted) })
	}
	total := m.sum(exps...)
	logged := m.do(func() (*G.Node, error) { return G.Log(total) })
	return m.add(logged, shift)
}
