package treelstm

import (
	"bytes"
	"encoding/gob"
	"io"
	"log"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/vocab"
	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Reserved vocabulary entries.
const (
	Unknown   = "*UNKNOWN*"
	WordStart = "<s>"
	WordEnd   = "</s>"
	CharStart = "<c>"
	CharEnd   = "</c>"
)

// Scorer scores derivation nodes with a tree-structured LSTM over the
// output of a bidirectional sentence encoder.
//
// A Scorer is not safe for concurrent use. Every call between two
// InitializeSentence calls refers to the same sentence.
type Scorer struct {
	Config

	words, chars, cats *vocab.Table

	nullCell, nullOutput, scoreVec *Parameter
	rules                          [syntax.NumRules]ruleParams
	slashes                        [syntax.NumSlashes]affineParams
	fwd, bwd                       *lstm
	charFwd, charBwd               *lstm
	wordEmb, charEmb, catEmb       []*Parameter

	params []*Parameter // in checkpoint order

	mask *rng.BernoulliGenerator
	sent *sentence
}

// New creates a scorer with freshly initialized parameters.
func New(conf Config) (*Scorer, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	cats, err := conf.categories()
	if err != nil {
		return nil, err
	}

	s := &Scorer{
		Config: conf,
		words:  vocab.Build(conf.Words, Unknown, WordStart, WordEnd),
		mask:   rng.NewBernoulliGenerator(conf.Seed + 1),
	}

	if conf.UseChars {
		var chars []string
		for _, w := range conf.Words {
			for _, c := range w {
				chars = append(chars, string(c))
			}
		}
		s.chars = vocab.Build(chars, Unknown, CharStart, CharEnd)
	}

	catStrings := make([]string, len(cats))
	for i, c := range cats {
		catStrings[i] = c.String()
	}
	s.cats = vocab.Build(catStrings, Unknown)

	b := builder{r: rng.NewUniformGenerator(conf.Seed)}

	s.nullCell = b.add("null_cell", conf.CellDims)
	s.nullOutput = b.add("null_output", conf.CellDims)
	s.scoreVec = b.add("score", conf.CellDims)

	for i := range s.rules {
		name := "rule/" + syntax.RuleType(i).String() + "/"
		s.rules[i] = ruleParams{
			input:       b.affine(name+"input", conf.CellDims, conf.gateInputDims()),
			leftForget:  b.affine(name+"left_forget", conf.CellDims, conf.gateInputDims()),
			rightForget: b.affine(name+"right_forget", conf.CellDims, conf.gateInputDims()),
			cell:        b.affine(name+"cell", conf.CellDims, conf.cellInputDims()),
			output:      b.affine(name+"output", conf.CellDims, conf.outputInputDims()),
		}
	}
	for i := range s.slashes {
		s.slashes[i] = b.affine("slash/"+syntax.Slash(i).Name(), conf.CategoryDims, 2*conf.CategoryDims)
	}

	if conf.Layers > 0 {
		s.fwd = b.lstm("lstm/fwd", conf.Layers, conf.inputDims(), conf.CellDims)
		s.bwd = b.lstm("lstm/bwd", conf.Layers, conf.inputDims(), conf.CellDims)
		if conf.UseChars {
			s.charFwd = b.lstm("lstm/char_fwd", conf.Layers, conf.charDims(), conf.charDims())
			s.charBwd = b.lstm("lstm/char_bwd", conf.Layers, conf.charDims(), conf.charDims())
		}
	}

	if conf.Layers >= 0 {
		s.wordEmb = b.table("word", s.words.Len(), conf.WordDims)
	}
	if s.chars != nil {
		s.charEmb = b.table("char", s.chars.Len(), conf.charDims())
	}
	s.catEmb = b.table("category", s.cats.Len(), conf.CategoryDims)

	s.params = b.params
	return s, nil
}

// Model returns every learnable parameter in checkpoint order.
func (s *Scorer) Model() []*Parameter { return s.params }

// ValueGrads returns the model in the form the gorgonia solvers expect. The
// order is fixed, so solvers that keep per-parameter state stay aligned.
func (s *Scorer) ValueGrads() []G.ValueGrad {
	retVal := make([]G.ValueGrad, len(s.params))
	for i, p := range s.params {
		retVal[i] = p
	}
	return retVal
}

// Words returns the word table.
func (s *Scorer) Words() *vocab.Table { return s.words }

// Categories returns the category table.
func (s *Scorer) Categories() *vocab.Table { return s.cats }

// WordEmbedding is an initial value for a word's embedding row.
type WordEmbedding struct {
	Word   string
	Vector []float32
}

// SetEmbeddings overwrites the embedding rows of known words. Unknown words are
// skipped and counted.
func (s *Scorer) SetEmbeddings(embeddings []WordEmbedding) (skipped int, err error) {
	if s.Layers < 0 {
		return 0, nil
	}
	for _, e := range embeddings {
		if len(e.Vector) != s.WordDims {
			return skipped, errors.Wrapf(ErrConfiguration, "embedding of %q has width %d. Expected %d", e.Word, len(e.Vector), s.WordDims)
		}
		if !s.words.Contains(e.Word) {
			skipped++
			continue
		}
		s.wordEmb[s.words.ID(e.Word)].set(e.Vector)
	}
	return skipped, nil
}

type paramRecord struct {
	Name   string
	Shape  []int
	Values []float32
}

func (s *Scorer) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(len(s.params)); err != nil {
		return nil, err
	}
	for _, p := range s.params {
		rec := paramRecord{Name: p.name, Shape: p.Shape().Clone(), Values: p.Data()}
		if err := enc.Encode(&rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// GobDecode loads parameter values. Every record is checked against the live
// parameters before any value is written.
func (s *Scorer) GobDecode(p []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(p))
	var n int
	if err := dec.Decode(&n); err != nil {
		return errors.Wrapf(ErrSerialization, "reading parameter count: %v", err)
	}
	if n != len(s.params) {
		return errors.Wrapf(ErrSerialization, "checkpoint has %d parameters. Expected %d", n, len(s.params))
	}
	recs := make([]paramRecord, n)
	for i, param := range s.params {
		if err := dec.Decode(&recs[i]); err != nil {
			return errors.Wrapf(ErrSerialization, "reading %v: %v", param.name, err)
		}
		rec := recs[i]
		if rec.Name != param.name || !param.Shape().Eq(rec.Shape) || len(rec.Values) != param.Shape().TotalSize() {
			return errors.Wrapf(ErrSerialization, "checkpoint has %s%v. Expected %v", rec.Name, rec.Shape, param)
		}
	}
	for i, param := range s.params {
		param.set(recs[i].Values)
	}
	s.sent = nil
	return nil
}

// Save writes the parameters to w.
func (s *Scorer) Save(w io.Writer) error {
	return errors.WithStack(gob.NewEncoder(w).Encode(s))
}

// Load reads parameters written by Save. On failure the parameters are left
// untouched.
func (s *Scorer) Load(r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(s); err != nil {
		if errors.Cause(err) == ErrSerialization {
			return err
		}
		return errors.Wrapf(ErrSerialization, "%v", err)
	}
	log.Printf("Loaded %d parameters", len(s.params))
	return nil
}

// Dot renders the current sentence graph in graphviz format.
func (s *Scorer) Dot() string {
	if s.sent == nil {
		return ""
	}
	return s.sent.g.ToDot()
}
