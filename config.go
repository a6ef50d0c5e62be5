package neuralccg

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/gorgonia/neuralccg/wire"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// FileConfig is the layout of a configuration file.
type FileConfig struct {
	Scorer ScorerConfig `yaml:"scorer"`
	Train  TrainConfig  `yaml:"train"`
}

// ScorerConfig is the file form of treelstm.Config. Vocabularies are given
// inline or as files with one entry per line.
type ScorerConfig struct {
	WordDims     int     `yaml:"word_dims" validate:"gt=0"`
	CellDims     int     `yaml:"cell_dims" validate:"gt=0"`
	CategoryDims int     `yaml:"category_dims" validate:"gt=0"`
	Layers       int     `yaml:"layers"`
	Dropout      float64 `yaml:"dropout" validate:"gte=0,lt=1"`

	UseChars              bool `yaml:"use_chars"`
	Compositional         bool `yaml:"compositional"`
	CoupleGates           bool `yaml:"couple_gates"`
	OutputGate            bool `yaml:"output_gate"`
	NonTerminalCategories bool `yaml:"nonterminal_categories"`
	ScoreSupertags        bool `yaml:"score_supertags"`
	Recursive             bool `yaml:"recursive"`

	Words          []string `yaml:"words" validate:"required_without=WordsFile"`
	WordsFile      string   `yaml:"words_file"`
	Categories     []string `yaml:"categories" validate:"required_without=CategoriesFile"`
	CategoriesFile string   `yaml:"categories_file"`

	Seed       int64  `yaml:"seed"`
	Checkpoint string `yaml:"checkpoint"`
}

// DefaultFileConf returns the defaults a configuration file is read over.
func DefaultFileConf() FileConfig {
	def := treelstm.DefaultConf(nil, nil)
	return FileConfig{
		Scorer: ScorerConfig{
			WordDims:              def.WordDims,
			CellDims:              def.CellDims,
			CategoryDims:          def.CategoryDims,
			Layers:                def.Layers,
			Dropout:               def.Dropout,
			UseChars:              def.UseChars,
			Compositional:         def.Compositional,
			CoupleGates:           def.CoupleGates,
			OutputGate:            def.OutputGate,
			NonTerminalCategories: def.NonTerminalCategories,
			ScoreSupertags:        def.ScoreSupertags,
			Recursive:             def.Recursive,
			Seed:                  def.Seed,
		},
		Train: DefaultTrainConf(),
	}
}

// LoadConfig reads a YAML configuration file over the defaults and validates
// it. Relative file names inside it are resolved against its directory.
func LoadConfig(filename string) (FileConfig, error) {
	f, err := os.Open(filename)
	if err != nil {
		return FileConfig{}, errors.WithStack(err)
	}
	defer f.Close()
	conf, err := ParseConfig(f)
	if err != nil {
		return conf, errors.WithMessagef(err, "reading %v", filename)
	}
	conf.resolve(filepath.Dir(filename))
	return conf, nil
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(r io.Reader) (FileConfig, error) {
	conf := DefaultFileConf()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&conf); err != nil && err != io.EOF {
		return conf, errors.Wrapf(ErrConfiguration, "%v", err)
	}
	if err := validate.Struct(conf); err != nil {
		return conf, errors.Wrapf(ErrConfiguration, "%v", err)
	}
	return conf, nil
}

func (conf *FileConfig) resolve(dir string) {
	for _, p := range []*string{
		&conf.Scorer.WordsFile,
		&conf.Scorer.CategoriesFile,
		&conf.Scorer.Checkpoint,
		&conf.Train.EmbeddingsFile,
		&conf.Train.CheckpointPath,
		&conf.Train.StatisticsPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Config returns the scorer configuration, reading the vocabulary files if
// there are any.
func (sc ScorerConfig) Config() (treelstm.Config, error) {
	words, cats := sc.Words, sc.Categories
	var err error
	if sc.WordsFile != "" {
		if words, err = readLines(sc.WordsFile); err != nil {
			return treelstm.Config{}, err
		}
	}
	if sc.CategoriesFile != "" {
		if cats, err = readLines(sc.CategoriesFile); err != nil {
			return treelstm.Config{}, err
		}
	}
	return treelstm.Config{
		WordDims:              sc.WordDims,
		CellDims:              sc.CellDims,
		CategoryDims:          sc.CategoryDims,
		Layers:                sc.Layers,
		Dropout:               sc.Dropout,
		UseChars:              sc.UseChars,
		Compositional:         sc.Compositional,
		CoupleGates:           sc.CoupleGates,
		OutputGate:            sc.OutputGate,
		NonTerminalCategories: sc.NonTerminalCategories,
		ScoreSupertags:        sc.ScoreSupertags,
		Recursive:             sc.Recursive,
		Words:                 words,
		Categories:            cats,
		Seed:                  sc.Seed,
		Checkpoint:            sc.Checkpoint,
	}, nil
}

// readLines reads the non-blank lines of a file.
func readLines(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	var retVal []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			retVal = append(retVal, line)
		}
	}
	return retVal, errors.WithStack(s.Err())
}

// LoadEmbeddings reads delimited WordEmbedding messages from filename.
func LoadEmbeddings(filename string) ([]treelstm.WordEmbedding, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	r := wire.NewReader(f)
	var retVal []treelstm.WordEmbedding
	for {
		msg, err := r.Next()
		if err == io.EOF {
			return retVal, nil
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "reading %v", filename)
		}
		e, err := wire.UnmarshalWordEmbedding(msg)
		if err != nil {
			return nil, errors.WithMessagef(err, "reading %v", filename)
		}
		retVal = append(retVal, e)
	}
}
