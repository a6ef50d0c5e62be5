package neuralccg

import (
	"encoding/gob"
	"io"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// dummyScorer scores a node with the number of words it spans, and learns
// nothing but the number of updates it was given.
type dummyScorer struct {
	words   int
	acc     []float32
	updates int
	updated bool
}

func newDummyScorer(conf treelstm.Config) (Scorer, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &dummyScorer{}, nil
}

func (d *dummyScorer) InitializeSentence(sent syntax.Sentence, withGates bool) (*treelstm.InitialGates, error) {
	d.words = sent.Len()
	d.acc = d.acc[:0]
	d.updated = false
	if withGates {
		return &treelstm.InitialGates{}, nil
	}
	return nil, nil
}

func (d *dummyScorer) ScoreNode(p syntax.Parse, withGates bool) (float32, *treelstm.Gates, error) {
	if p.Start < 0 || p.End >= d.words || p.Start > p.End {
		return 0, nil, errors.Wrapf(treelstm.ErrInvalidParse, "span [%d, %d] of %d words", p.Start, p.End, d.words)
	}
	score := float32(p.End - p.Start + 1)
	acc := score
	for _, c := range p.Children {
		if c < 0 || c >= len(d.acc) {
			return 0, nil, errors.Wrapf(treelstm.ErrInvalidParse, "child %d", c)
		}
		acc += d.acc[c]
	}
	d.acc = append(d.acc, acc)
	var gates *treelstm.Gates
	if withGates {
		gates = &treelstm.Gates{Input: []float32{1}, LeftForget: []float32{0}, RightForget: []float32{0}}
	}
	return score, gates, nil
}

func (d *dummyScorer) Accumulated(i int) (float32, error) {
	if i < 0 || i >= len(d.acc) {
		return 0, errors.WithStack(treelstm.ErrIndexOutOfRange)
	}
	return d.acc[i], nil
}

func (d *dummyScorer) ApplyUpdate(u treelstm.Update, solver G.Solver) (float32, error) {
	if d.updated {
		return 0, errors.WithStack(treelstm.ErrInvalidUpdate)
	}
	if err := u.Validate(len(d.acc)); err != nil {
		return 0, err
	}
	d.updated = true
	d.updates++
	return 1, nil
}

func (d *dummyScorer) SetEmbeddings(embeddings []treelstm.WordEmbedding) (int, error) {
	return len(embeddings), nil
}

func (d *dummyScorer) Save(w io.Writer) error { return gob.NewEncoder(w).Encode(d.updates) }
func (d *dummyScorer) Load(r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(&d.updates); err != nil {
		return errors.Wrapf(treelstm.ErrSerialization, "%v", err)
	}
	return nil
}
