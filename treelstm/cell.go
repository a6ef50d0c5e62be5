package treelstm

import (
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// cached pairs a node of the sentence graph with its forward value. The value
// is nil for inputs, which carry their own.
type cached struct {
	n *G.Node
	v []float32
}

// cellNodes are the nodes of one application of the tree cell.
type cellNodes struct {
	input, left, right *G.Node
	cell, output       *G.Node
	score              *G.Node
}

// ScoreNode scores p and appends it to the current sentence. Children of p
// must have been scored before. The local score of p is returned; its
// accumulated score is available through Accumulated(Len()-1).
//
// The cell is built twice. One copy reads the children's nodes and is kept for
// backpropagation. The other reads their cached values and is the only part
// evaluated, so the cost of a call does not grow with the size of the chart.
func (s *Scorer) ScoreNode(p syntax.Parse, withGates bool) (score float32, gates *Gates, err error) {
	ctx := s.sent
	switch {
	case ctx == nil:
		return 0, nil, errors.WithStack(ErrNoSentence)
	case ctx.updated:
		return 0, nil, errors.Wrap(ErrNoSentence, "the sentence has already been updated")
	case p.Category == nil:
		return 0, nil, errors.Wrap(ErrInvalidParse, "node has no category")
	case !p.Rule.IsValid():
		return 0, nil, errors.Wrapf(ErrInvalidParse, "unknown rule type %d", p.Rule)
	case len(p.Children) > 2:
		return 0, nil, errors.Wrapf(ErrInvalidParse, "unsupported number of children: %d", len(p.Children))
	}

	children := make([]record, len(p.Children))
	for i, c := range p.Children {
		if children[i], err = ctx.ledger.at(c); err != nil {
			return 0, nil, err
		}
	}

	var m maebe
	cat := ctx.zeroCat
	if s.NonTerminalCategories || p.IsLeaf() {
		cat = s.category(&m, p.Category)
	}
	cl, hl, cr, hr, err := s.childStates(&m, p, children)
	if err != nil {
		return 0, nil, err
	}

	kept := s.compose(&m, p, cat, cl.n, hl.n, cr.n, hr.n)
	now := s.compose(&m, p, cat, s.frozen(cl), s.frozen(hl), s.frozen(cr), s.frozen(hr))

	acc := kept.score
	var childScores float32
	for _, c := range children {
		acc = m.add(acc, c.acc)
		childScores += c.accScore
	}
	if m.err != nil {
		return 0, nil, m.err
	}

	outs := []*G.Node{now.cell, now.output}
	scored := now.score != ctx.zero
	if scored {
		outs = append(outs, now.score)
	}
	if withGates {
		outs = append(outs, now.input, now.left, now.right)
	}
	vals, err := s.eval(outs...)
	if err != nil {
		return 0, nil, err
	}
	cellVal, outputVal, vals := vals[0], vals[1], vals[2:]
	if scored {
		score, vals = vals[0][0], vals[1:]
	}
	if withGates {
		gates = &Gates{Input: vals[0], LeftForget: vals[1], RightForget: vals[2]}
	}

	ctx.ledger = append(ctx.ledger, record{
		cell:      kept.cell,
		output:    kept.output,
		acc:       acc,
		cellVal:   cellVal,
		outputVal: outputVal,
		score:     score,
		accScore:  score + childScores,
	})
	return score, gates, nil
}

// compose applies the cell of p's rule to a category and the left and right
// (cell, output) pairs.
func (s *Scorer) compose(m *maebe, p syntax.Parse, cat, cl, hl, cr, hr *G.Node) (retVal cellNodes) {
	ctx := s.sent
	param := s.param
	rule := s.rules[p.Rule]
	affine := func(a affineParams, x *G.Node) *G.Node { return m.affine(param(a.W), param(a.B), x) }

	inter := m.tanh(affine(rule.cell, m.concat(cat, hl, hr)))

	gateInput := m.concat(cat, cl, hl, cr, hr)
	retVal.input = m.sigmoid(affine(rule.input, gateInput))
	if s.CoupleGates {
		leftRaw := m.sigmoid(affine(rule.leftForget, gateInput))
		rightRaw := m.sub(ctx.one, leftRaw)
		rest := m.sub(ctx.one, retVal.input)
		retVal.left = m.hadamard(rest, leftRaw)
		retVal.right = m.hadamard(rest, rightRaw)
	} else {
		retVal.left = m.sigmoid(m.add(affine(rule.leftForget, gateInput), ctx.one))
		retVal.right = m.sigmoid(m.add(affine(rule.rightForget, gateInput), ctx.one))
	}

	retVal.cell = m.sum(m.hadamard(retVal.input, inter), m.hadamard(retVal.left, cl), m.hadamard(retVal.right, cr))
	retVal.output = m.tanh(retVal.cell)
	if s.OutputGate {
		og := m.sigmoid(affine(rule.output, m.concat(cat, retVal.cell, hl, hr)))
		retVal.output = m.hadamard(og, retVal.output)
	}

	retVal.score = ctx.zero
	if s.ScoreSupertags || !p.IsLeaf() {
		retVal.score = m.negSoftplus(m.mul(param(s.scoreVec), retVal.output))
	}
	return retVal
}

// childStates returns the left and right (cell, output) pairs a node reads.
func (s *Scorer) childStates(m *maebe, p syntax.Parse, children []record) (cl, hl, cr, hr cached, err error) {
	ctx := s.sent
	n := len(ctx.words)
	zero := cached{n: ctx.zeroCell}

	if !s.Recursive {
		if p.Start < 0 || p.Start > p.End || p.End >= n {
			return cl, hl, cr, hr, errors.Wrapf(ErrInvalidParse, "span [%d, %d] is not inside a sentence of %d words", p.Start, p.End, n)
		}
		l := ctx.top(ctx.fwd, p.End+1)
		r := ctx.top(ctx.bwd, n-p.Start)
		return cached{l.c, l.cv}, cached{l.h, l.hv}, cached{r.c, r.cv}, cached{r.h, r.hv}, nil
	}

	switch len(children) {
	case 0:
		if p.Start != p.End {
			return cl, hl, cr, hr, errors.Wrapf(ErrInvalidParse, "leaves should have the same start and end indices. Got %d and %d", p.Start, p.End)
		}
		if p.Start < 0 || p.Start >= n {
			return cl, hl, cr, hr, errors.Wrapf(ErrInvalidParse, "leaf at %d is outside a sentence of %d words", p.Start, n)
		}
		switch {
		case s.Layers > 0:
			l := ctx.top(ctx.fwd, p.Start+1)
			r := ctx.top(ctx.bwd, n-p.Start)
			return cached{l.c, l.cv}, cached{l.h, l.hv}, cached{r.c, r.cv}, cached{r.h, r.hv}, nil
		case s.Layers == 0:
			cr = cached{ctx.inputs[p.Start], ctx.inputVals[p.Start]}
			if ctx.zeroPad != nil {
				padded := make([]float32, s.CellDims)
				copy(padded, cr.v)
				cr = cached{m.concat(cr.n, ctx.zeroPad), padded}
			}
			return zero, zero, cr, zero, m.err
		default:
			return zero, zero, zero, zero, nil
		}
	case 1:
		return cached{n: s.param(s.nullCell)}, cached{n: s.param(s.nullOutput)}, children[0].cellState(), children[0].outputState(), nil
	default:
		return children[0].cellState(), children[0].outputState(), children[1].cellState(), children[1].outputState(), nil
	}
}
