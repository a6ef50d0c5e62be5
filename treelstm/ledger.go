package treelstm

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// record is a scored node. Nodes are kept so that later nodes and the loss can
// be built on top of them.
type record struct {
	cell, output, acc  *G.Node
	cellVal, outputVal []float32

	score, accScore float32
}

func (r record) cellState() cached   { return cached{r.cell, r.cellVal} }
func (r record) outputState() cached { return cached{r.output, r.outputVal} }

// ledger holds the nodes of a sentence in scoring order.
type ledger []record

func (l ledger) at(i int) (record, error) {
	if i < 0 || i >= len(l) {
		return record{}, errors.Wrapf(ErrIndexOutOfRange, "node %d requested but only %d nodes have been scored", i, len(l))
	}
	return l[i], nil
}

// Len returns the number of nodes scored for the current sentence.
func (s *Scorer) Len() int {
	if s.sent == nil {
		return 0
	}
	return len(s.sent.ledger)
}

// Accumulated returns the accumulated score of node i, that is its own score
// plus the scores of all its descendants.
func (s *Scorer) Accumulated(i int) (float32, error) {
	if s.sent == nil {
		return 0, errors.WithStack(ErrNoSentence)
	}
	r, err := s.sent.ledger.at(i)
	if err != nil {
		return 0, err
	}
	return r.accScore, nil
}

// Representation returns the cell and output vectors of node i.
func (s *Scorer) Representation(i int) (cell, output []float32, err error) {
	if s.sent == nil {
		return nil, nil, errors.WithStack(ErrNoSentence)
	}
	r, err := s.sent.ledger.at(i)
	if err != nil {
		return nil, nil, err
	}
	cell = append([]float32(nil), r.cellVal...)
	output = append([]float32(nil), r.outputVal...)
	return cell, output, nil
}
