package treelstm

import (
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/pkg/errors"
)

// Config configures the tree-LSTM scorer.
type Config struct {
	WordDims     int // word embedding width
	CellDims     int // width of every cell and output vector
	CategoryDims int // category embedding width

	// Layers is the depth of the bidirectional sentence encoder. Zero disables
	// the encoder but keeps lexical features. Negative values also drop the
	// lexical features.
	Layers  int
	Dropout float64 // dropout probability on encoder inputs of non-eval sentences

	UseChars              bool // build word inputs with a character encoder
	Compositional         bool // compose categories from their atoms
	CoupleGates           bool // input and forget gates form a 3-way mixture
	OutputGate            bool
	NonTerminalCategories bool // whether non-leaf nodes see their category
	ScoreSupertags        bool // whether leaves carry their own score
	Recursive             bool // false: every node reads its span from the encoder

	Words      []string
	Categories []string // parsed with syntax.ParseCategory

	Seed int64

	// Checkpoint optionally names a checkpoint whose values are loaded when the
	// scorer is initialized.
	Checkpoint string
}

// DefaultConf returns a configuration for the given vocabulary.
func DefaultConf(words, categories []string) Config {
	return Config{
		WordDims:     50,
		CellDims:     64,
		CategoryDims: 32,
		Layers:       1,
		Dropout:      0.1,

		CoupleGates:           true,
		NonTerminalCategories: true,
		ScoreSupertags:        true,
		Recursive:             true,

		Words:      words,
		Categories: categories,
		Seed:       1337,
	}
}

func (conf Config) IsValid() bool { return conf.Validate() == nil }

// Validate returns an ErrConfiguration describing the first problem found.
func (conf Config) Validate() error {
	switch {
	case conf.WordDims < 1:
		return errors.Wrapf(ErrConfiguration, "word dimensions must be positive. Got %d", conf.WordDims)
	case conf.CellDims < 1:
		return errors.Wrapf(ErrConfiguration, "cell dimensions must be positive. Got %d", conf.CellDims)
	case conf.CategoryDims < 1:
		return errors.Wrapf(ErrConfiguration, "category dimensions must be positive. Got %d", conf.CategoryDims)
	case conf.Dropout < 0 || conf.Dropout >= 1:
		return errors.Wrapf(ErrConfiguration, "dropout must be in [0, 1). Got %v", conf.Dropout)
	case conf.Layers == 0 && conf.CellDims < conf.WordDims:
		return errors.Wrapf(ErrConfiguration, "without an encoder the cell (%d) must be at least as wide as a word (%d)", conf.CellDims, conf.WordDims)
	case conf.UseChars && conf.Layers < 1:
		return errors.Wrapf(ErrConfiguration, "the character encoder needs at least one layer. Got %d", conf.Layers)
	case conf.UseChars && conf.WordDims%2 != 0:
		return errors.Wrapf(ErrConfiguration, "the character encoder needs an even word width. Got %d", conf.WordDims)
	case !conf.Recursive && conf.Layers < 1:
		return errors.Wrapf(ErrConfiguration, "span features need the encoder. Got %d layers", conf.Layers)
	}
	_, err := conf.categories()
	return err
}

// categories parses the configured categories and checks them against the
// category mode.
func (conf Config) categories() ([]*syntax.Category, error) {
	retVal := make([]*syntax.Category, 0, len(conf.Categories))
	for _, s := range conf.Categories {
		c, err := syntax.ParseCategory(s)
		if err != nil {
			return nil, errors.Wrapf(ErrConfiguration, "%v", err)
		}
		if conf.Compositional && !c.IsAtomic() {
			return nil, errors.Wrapf(ErrConfiguration, "only atomic categories may be given when composing categories. Found %v", c)
		}
		retVal = append(retVal, c)
	}
	return retVal, nil
}

// inputDims is the width of a word input to the encoder.
func (conf Config) inputDims() int { return conf.WordDims }

func (conf Config) charDims() int { return conf.WordDims / 2 }

func (conf Config) gateInputDims() int   { return conf.CategoryDims + 4*conf.CellDims }
func (conf Config) cellInputDims() int   { return conf.CategoryDims + 2*conf.CellDims }
func (conf Config) outputInputDims() int { return conf.CategoryDims + 3*conf.CellDims }
