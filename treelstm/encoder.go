package treelstm

import (
	"fmt"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// lstmState is the state of one layer at one timestep, with the gates that
// produced it.
type lstmState struct {
	c, h          *G.Node
	input, forget *G.Node

	cv, hv []float32 // values of c and h, kept for the top layer only
}

// sentence is everything built for the current sentence. It is discarded as a
// whole when the next sentence starts.
type sentence struct {
	g     *G.ExprGraph
	words []string
	eval  bool

	bound  map[*Parameter]*G.Node
	cats   map[string]*G.Node
	inputs []*G.Node

	inputVals [][]float32 // values of inputs, kept when there is no encoder

	// fwd[t] and bwd[t] are the states after t inputs. Index 0 is the sentinel.
	fwd, bwd [][]lstmState

	zero, one         *G.Node
	zeroCell, zeroCat *G.Node
	zeroPad           *G.Node

	ledger  ledger
	updated bool
	uid     int
}

func (ctx *sentence) top(states [][]lstmState, t int) lstmState {
	layers := states[t]
	return layers[len(layers)-1]
}

// param binds p into the current graph, once per sentence.
func (s *Scorer) param(p *Parameter) *G.Node {
	ctx := s.sent
	if n, ok := ctx.bound[p]; ok {
		return n
	}
	n := p.node(ctx.g)
	ctx.bound[p] = n
	return n
}

// vec creates an input vector holding a copy of data. Names are unique within
// the sentence.
func (s *Scorer) vec(name string, data []float32) *G.Node {
	ctx := s.sent
	ctx.uid++
	backing := make([]float32, len(data))
	copy(backing, data)
	t := tensor.New(tensor.WithShape(len(data)), tensor.WithBacking(backing))
	return G.NewVector(ctx.g, Float, G.WithShape(len(data)), G.WithName(fmt.Sprintf("%s_%d", name, ctx.uid)), G.WithValue(t))
}

func (s *Scorer) scalar(name string, v float32) *G.Node {
	ctx := s.sent
	ctx.uid++
	return G.NewScalar(ctx.g, Float, G.WithName(fmt.Sprintf("%s_%d", name, ctx.uid)), G.WithValue(v))
}

// InitializeSentence starts a new sentence, discarding the previous one, and
// runs the encoder over it. If withGates is set and the encoder is enabled, the
// realized encoder gates are returned.
func (s *Scorer) InitializeSentence(sent syntax.Sentence, withGates bool) (*InitialGates, error) {
	s.sent = &sentence{
		g:     G.NewGraph(),
		words: sent.Words,
		eval:  sent.Eval,
		bound: make(map[*Parameter]*G.Node),
		cats:  make(map[string]*G.Node),
	}
	ctx := s.sent
	ctx.zero = s.scalar("zero", 0)
	ctx.one = s.scalar("one", 1)
	ctx.zeroCell = s.vec("zero_cell", make([]float32, s.CellDims))
	ctx.zeroCat = s.vec("zero_category", make([]float32, s.CategoryDims))
	if s.Layers == 0 && s.CellDims > s.WordDims {
		ctx.zeroPad = s.vec("zero_pad", make([]float32, s.CellDims-s.WordDims))
	}

	var m maebe
	if s.Layers >= 0 {
		for i, w := range sent.Words {
			x := s.inputEmbedding(&m, w)
			if !sent.Eval && s.Dropout > 0 {
				x = m.hadamard(x, s.dropoutMask(i))
			}
			ctx.inputs = append(ctx.inputs, x)
		}
	}
	if s.Layers > 0 {
		n := len(ctx.inputs)
		reversed := make([]*G.Node, n)
		for i, x := range ctx.inputs {
			reversed[n-1-i] = x
		}
		ctx.fwd = s.encode(&m, s.fwd, s.param(s.wordEmb[s.words.ID(WordStart)]), ctx.inputs)
		ctx.bwd = s.encode(&m, s.bwd, s.param(s.wordEmb[s.words.ID(WordEnd)]), reversed)
	}
	if m.err != nil {
		s.sent = nil
		return nil, m.err
	}

	gates, err := s.cacheEncoder(withGates && s.Layers > 0)
	if err != nil {
		s.sent = nil
		return nil, err
	}
	return gates, nil
}

// cacheEncoder evaluates the encoder once per sentence and keeps the values
// nodes read from it, so scoring a node never runs the encoder again. Word i
// reads forward state i+1 and backward state n-i, the same states leaves read.
func (s *Scorer) cacheEncoder(withGates bool) (*InitialGates, error) {
	ctx := s.sent
	n := len(ctx.words)
	var nodes []*G.Node
	switch {
	case s.Layers > 0:
		for t := 0; t <= n; t++ {
			f, b := ctx.top(ctx.fwd, t), ctx.top(ctx.bwd, t)
			nodes = append(nodes, f.c, f.h, b.c, b.h)
		}
	case s.Layers == 0:
		nodes = append(nodes, ctx.inputs...)
	}
	states := len(nodes)
	if withGates {
		for i := 0; i < n; i++ {
			f, b := ctx.top(ctx.fwd, i+1), ctx.top(ctx.bwd, n-i)
			nodes = append(nodes, f.input, f.forget, b.input, b.forget)
		}
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	vals, err := s.eval(nodes...)
	if err != nil {
		return nil, err
	}

	switch {
	case s.Layers > 0:
		for t := 0; t <= n; t++ {
			f := &ctx.fwd[t][len(ctx.fwd[t])-1]
			b := &ctx.bwd[t][len(ctx.bwd[t])-1]
			f.cv, f.hv, b.cv, b.hv = vals[4*t], vals[4*t+1], vals[4*t+2], vals[4*t+3]
		}
	case s.Layers == 0:
		ctx.inputVals = vals[:states]
	}
	if !withGates {
		return nil, nil
	}

	vals = vals[states:]
	retVal := &InitialGates{
		Forward:  make([]Gates, n),
		Backward: make([]Gates, n),
	}
	for i := 0; i < n; i++ {
		retVal.Forward[i] = Gates{Input: vals[4*i], LeftForget: vals[4*i+1]}
		retVal.Backward[i] = Gates{Input: vals[4*i+2], LeftForget: vals[4*i+3]}
	}
	return retVal, nil
}

// frozen returns a node holding the value of c that does not depend on
// anything evaluated before. Inputs are their own frozen version.
func (s *Scorer) frozen(c cached) *G.Node {
	if c.n.Op() == nil {
		return c.n
	}
	return s.vec("frozen", c.v)
}

// inputEmbedding is a word's row, or the concatenated final outputs of the two
// character encoders.
func (s *Scorer) inputEmbedding(m *maebe, word string) *G.Node {
	if !s.UseChars {
		return s.param(s.wordEmb[s.words.ID(word)])
	}
	runes := []rune(word)
	fwd := make([]*G.Node, len(runes))
	bwd := make([]*G.Node, len(runes))
	for i, r := range runes {
		fwd[i] = s.param(s.charEmb[s.chars.ID(string(r))])
		bwd[len(runes)-1-i] = fwd[i]
	}
	f := s.encode(m, s.charFwd, s.param(s.charEmb[s.chars.ID(CharStart)]), fwd)
	b := s.encode(m, s.charBwd, s.param(s.charEmb[s.chars.ID(CharEnd)]), bwd)
	return m.concat(s.sent.top(f, len(f)-1).h, s.sent.top(b, len(b)-1).h)
}

// dropoutMask is an inverted dropout mask for word i. Masks are drawn when the
// sentence is built, so every evaluation of the graph sees the same mask.
func (s *Scorer) dropoutMask(i int) *G.Node {
	keep := 1 - s.Dropout
	mask := make([]float32, s.WordDims)
	for j := range mask {
		if s.mask.Bernoulli_P(keep) {
			mask[j] = float32(1 / keep)
		}
	}
	return s.vec(fmt.Sprintf("dropout_%d", i), mask)
}

// encode runs l over the sentinel followed by xs. The returned slice has
// len(xs)+1 timesteps.
func (s *Scorer) encode(m *maebe, l *lstm, sentinel *G.Node, xs []*G.Node) [][]lstmState {
	retVal := make([][]lstmState, 0, len(xs)+1)
	var prev []lstmState
	for _, x := range append([]*G.Node{sentinel}, xs...) {
		prev = s.step(m, l, x, prev)
		retVal = append(retVal, prev)
	}
	return retVal
}

// step is one timestep of a peephole LSTM whose forget gate is 1-input. The
// first timestep has no previous state, so the recurrent terms are dropped.
func (s *Scorer) step(m *maebe, l *lstm, x *G.Node, prev []lstmState) []lstmState {
	ctx := s.sent
	p := s.param
	next := make([]lstmState, len(l.layers))
	in := x
	for i, layer := range l.layers {
		var st lstmState
		var ai, aw *G.Node
		if prev == nil {
			ai = m.affine(p(layer.x2i), p(layer.bi), in)
			aw = m.affine(p(layer.x2c), p(layer.bc), in)
		} else {
			ai = m.sum(m.affine(p(layer.x2i), p(layer.bi), in), m.mul(p(layer.h2i), prev[i].h), m.mul(p(layer.c2i), prev[i].c))
			aw = m.add(m.affine(p(layer.x2c), p(layer.bc), in), m.mul(p(layer.h2c), prev[i].h))
		}
		st.input = m.sigmoid(ai)
		st.forget = m.sub(ctx.one, st.input)
		w := m.tanh(aw)

		if prev == nil {
			st.c = m.hadamard(st.input, w)
		} else {
			st.c = m.add(m.hadamard(st.forget, prev[i].c), m.hadamard(st.input, w))
		}

		var ao *G.Node
		if prev == nil {
			ao = m.add(m.affine(p(layer.x2o), p(layer.bo), in), m.mul(p(layer.c2o), st.c))
		} else {
			ao = m.sum(m.affine(p(layer.x2o), p(layer.bo), in), m.mul(p(layer.h2o), prev[i].h), m.mul(p(layer.c2o), st.c))
		}
		o := m.sigmoid(ao)
		st.h = m.hadamard(o, m.tanh(st.c))

		next[i] = st
		in = st.h
	}
	return next
}

// eval runs the part of the graph the nodes depend on and returns copies of
// their values. The machine traces execution, so values of nodes that others
// depend on are not overwritten by register reuse.
func (s *Scorer) eval(nodes ...*G.Node) ([][]float32, error) {
	var computed bool
	for _, n := range nodes {
		if n.Op() != nil {
			computed = true
			break
		}
	}
	if computed {
		vm := G.NewTapeMachine(s.sent.g.SubgraphRoots(nodes...), G.TraceExec())
		defer vm.Close()
		if err := vm.RunAll(); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	retVal := make([][]float32, len(nodes))
	for i, n := range nodes {
		retVal[i] = valueData(n.Value())
	}
	return retVal, nil
}

func valueData(v G.Value) []float32 {
	if v == nil {
		return nil
	}
	switch d := v.Data().(type) {
	case []float32:
		retVal := make([]float32, len(d))
		copy(retVal, d)
		return retVal
	case float32:
		return []float32{d}
	}
	return nil
}
