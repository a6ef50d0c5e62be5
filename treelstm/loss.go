package treelstm

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/vecf32"
)

// Update names nodes of the current sentence as correct or incorrect.
type Update struct {
	Correct   []int
	Incorrect []int
	CRF       bool // use the normalized loss instead of the margin loss
}

// Validate checks u against a sentence with n scored nodes.
func (u Update) Validate(n int) error {
	if len(u.Correct) == 0 {
		return errors.Wrap(ErrInvalidUpdate, "no correct nodes")
	}
	if !u.CRF && len(u.Incorrect) == 0 {
		return errors.Wrap(ErrInvalidUpdate, "no incorrect nodes")
	}
	seen := make(map[int]bool, len(u.Correct))
	for _, i := range u.Correct {
		if i < 0 || i >= n {
			return errors.Wrapf(ErrIndexOutOfRange, "correct node %d of %d", i, n)
		}
		seen[i] = true
	}
	for _, i := range u.Incorrect {
		if i < 0 || i >= n {
			return errors.Wrapf(ErrIndexOutOfRange, "incorrect node %d of %d", i, n)
		}
		if seen[i] {
			return errors.Wrapf(ErrInvalidUpdate, "node %d is both correct and incorrect", i)
		}
	}
	return nil
}

// Loss computes the value of the loss u would be trained on without touching
// the parameters.
func (s *Scorer) Loss(u Update) (float32, error) {
	if s.sent == nil {
		return 0, errors.WithStack(ErrNoSentence)
	}
	if err := u.Validate(len(s.sent.ledger)); err != nil {
		return 0, err
	}
	correct, incorrect := s.sent.ledger.accScores(u.Correct), s.sent.ledger.accScores(u.Incorrect)
	switch {
	case u.CRF:
		return logsumexp(append(incorrect, correct...)) - logsumexp(correct), nil
	case len(correct) == 1 && len(incorrect) == 1:
		return incorrect[0] - correct[0], nil
	default:
		return vecf32.Sum(incorrect) - vecf32.Sum(correct), nil
	}
}

// ApplyUpdate computes the loss of u, backpropagates it through the sentence
// graph and takes one step with solver. Only one update is allowed per
// sentence.
func (s *Scorer) ApplyUpdate(u Update, solver G.Solver) (loss float32, err error) {
	ctx := s.sent
	switch {
	case ctx == nil:
		return 0, errors.WithStack(ErrNoSentence)
	case ctx.updated:
		return 0, errors.Wrap(ErrInvalidUpdate, "the sentence has already been updated")
	case solver == nil:
		return 0, errors.Wrap(ErrConfiguration, "no solver. Was training initialized?")
	}
	if loss, err = s.Loss(u); err != nil {
		return 0, err
	}
	if math32.IsNaN(loss) || math32.IsInf(loss, 0) {
		return loss, errors.Wrapf(ErrInvalidUpdate, "loss is %v", loss)
	}

	var m maebe
	lossNode := s.lossNode(&m, u)
	if m.err != nil {
		return 0, m.err
	}

	for _, p := range s.params {
		p.zeroGrad()
	}
	params, wrt := s.reachable(lossNode)
	if len(wrt) > 0 {
		var grads G.Nodes
		if grads, err = G.Grad(lossNode, wrt...); err != nil {
			return 0, errors.WithStack(err)
		}
		vals, err := s.eval(grads...)
		if err != nil {
			return 0, err
		}
		for i, p := range params {
			vecf32.Add(p.gradData(), vals[i])
		}
	}
	if err = solver.Step(s.ValueGrads()); err != nil {
		return 0, errors.WithStack(err)
	}
	ctx.updated = true
	return loss, nil
}

func (s *Scorer) lossNode(m *maebe, u Update) *G.Node {
	ledger := s.sent.ledger
	correct, incorrect := ledger.accNodes(u.Correct), ledger.accNodes(u.Incorrect)
	switch {
	case u.CRF:
		all := append(incorrect, correct...)
		allShift := s.scalar("shift", maxOf(append(ledger.accScores(u.Incorrect), ledger.accScores(u.Correct)...)))
		correctShift := s.scalar("shift", maxOf(ledger.accScores(u.Correct)))
		return m.sub(m.logsumexp(allShift, all...), m.logsumexp(correctShift, correct...))
	case len(correct) == 1 && len(incorrect) == 1:
		return m.sub(incorrect[0], correct[0])
	default:
		return m.sub(m.sum(incorrect...), m.sum(correct...))
	}
}

// reachable returns the parameters the loss depends on, with their nodes.
func (s *Scorer) reachable(loss *G.Node) (params []*Parameter, nodes G.Nodes) {
	ancestors := make(map[*G.Node]struct{})
	for _, n := range s.sent.g.SubgraphRoots(loss).AllNodes() {
		ancestors[n] = struct{}{}
	}
	for _, p := range s.params {
		n, ok := s.sent.bound[p]
		if !ok {
			continue
		}
		if _, ok := ancestors[n]; ok {
			params = append(params, p)
			nodes = append(nodes, n)
		}
	}
	return params, nodes
}

func (l ledger) accScores(idx []int) []float32 {
	retVal := make([]float32, len(idx))
	for i, j := range idx {
		retVal[i] = l[j].accScore
	}
	return retVal
}

func (l ledger) accNodes(idx []int) []*G.Node {
	retVal := make([]*G.Node, len(idx))
	for i, j := range idx {
		retVal[i] = l[j].acc
	}
	return retVal
}

func maxOf(a []float32) float32 {
	retVal := a[0]
	for _, v := range a[1:] {
		if v > retVal {
			retVal = v
		}
	}
	return retVal
}

func logsumexp(a []float32) float32 {
	shift := maxOf(a)
	var sum float32
	for _, v := range a {
		sum += math32.Exp(v - shift)
	}
	return math32.Log(sum) + shift
}
