package neuralccg

import (
	"io"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	G "gorgonia.org/gorgonia"
)

// Scorer is anything that can score the nodes of a derivation, one sentence
// at a time, and learn from updates.
type Scorer interface {
	InitializeSentence(sent syntax.Sentence, withGates bool) (*treelstm.InitialGates, error)
	ScoreNode(p syntax.Parse, withGates bool) (score float32, gates *treelstm.Gates, err error)
	Accumulated(i int) (float32, error)
	ApplyUpdate(u treelstm.Update, solver G.Solver) (loss float32, err error)
	SetEmbeddings(embeddings []treelstm.WordEmbedding) (skipped int, err error)

	Save(w io.Writer) error
	Load(r io.Reader) error
}

// ScorerFactory creates a Scorer from a configuration.
type ScorerFactory func(conf treelstm.Config) (Scorer, error)

// NewTreeLSTM is the default ScorerFactory.
func NewTreeLSTM(conf treelstm.Config) (Scorer, error) {
	s, err := treelstm.New(conf)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OutputEncoder receives the gate activations of every replayed sentence.
//
// An example OutputEncoder is the GIF encoder in encoding/gif.
type OutputEncoder interface {
	Encode(sent syntax.Sentence, nodes []syntax.Parse, gates []treelstm.Gates) error
	Flush() error
}

// TrainConfig configures training.
type TrainConfig struct {
	Optimizer string  `yaml:"optimizer" validate:"required,oneof=adam momentum sgd vanilla"`
	LearnRate float64 `yaml:"learn_rate" validate:"gte=0"`

	// EmbeddingsFile holds delimited WordEmbedding messages used to
	// initialize the word table.
	EmbeddingsFile string `yaml:"embeddings_file"`

	Epochs          int    `yaml:"epochs" validate:"gte=1"`
	CheckpointEvery int    `yaml:"checkpoint_every" validate:"gte=0"`
	CheckpointPath  string `yaml:"checkpoint_path" validate:"required_with=CheckpointEvery"`
	StatisticsPath  string `yaml:"statistics_path"`

	// queue thresholds of the replay queue
	QueueMin int   `yaml:"queue_min" validate:"gte=0"`
	QueueMax int   `yaml:"queue_max" validate:"gte=0"`
	Seed     int64 `yaml:"seed"`
}

// DefaultTrainConf returns the default training configuration.
func DefaultTrainConf() TrainConfig {
	return TrainConfig{
		Optimizer: treelstm.Adam,
		Epochs:    10,
		QueueMin:  16,
		QueueMax:  256,
		Seed:      1337,
	}
}
