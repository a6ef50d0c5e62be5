package treelstm

import (
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// category embeds c. In compositional mode composite categories are built
// from their atoms through a slash-specific layer; otherwise the canonical
// string is looked up directly.
func (s *Scorer) category(m *maebe, c *syntax.Category) *G.Node {
	if m.err != nil {
		return nil
	}
	ctx := s.sent
	key := c.String()
	if n, ok := ctx.cats[key]; ok {
		return n
	}

	var retVal *G.Node
	if s.Compositional && !c.IsAtomic() {
		if c.Slash < 0 || int(c.Slash) >= syntax.NumSlashes {
			m.err = errors.Wrapf(ErrInvalidParse, "unknown slash %d in %v", c.Slash, c)
			return nil
		}
		left := s.category(m, c.Left)
		right := s.category(m, c.Right)
		sl := s.slashes[c.Slash]
		retVal = m.tanh(m.affine(s.param(sl.W), s.param(sl.B), m.concat(left, right)))
	} else {
		retVal = s.param(s.catEmb[s.cats.ID(key)])
	}
	if m.err == nil {
		ctx.cats[key] = retVal
	}
	return retVal
}

// CategoryEmbedding evaluates the embedding of c in the current sentence.
func (s *Scorer) CategoryEmbedding(c *syntax.Category) ([]float32, error) {
	if s.sent == nil {
		return nil, errors.WithStack(ErrNoSentence)
	}
	var m maebe
	n := s.category(&m, c)
	if m.err != nil {
		return nil, m.err
	}
	vals, err := s.eval(n)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}
