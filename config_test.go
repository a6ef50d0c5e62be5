package neuralccg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/gorgonia/neuralccg/wire"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
scorer:
  word_dims: 4
  cell_dims: 6
  category_dims: 3
  dropout: 0
  words: [the, cat, sat]
  categories: [NP, N, S, NP/N, 'S\NP']
train:
  optimizer: momentum
  learn_rate: 0.02
  epochs: 3
`

func TestParseConfig(t *testing.T) {
	conf, err := ParseConfig(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "momentum", conf.Train.Optimizer)
	assert.Equal(t, 0.02, conf.Train.LearnRate)
	assert.Equal(t, 3, conf.Train.Epochs)
	assert.Equal(t, DefaultTrainConf().QueueMax, conf.Train.QueueMax, "unset fields keep their defaults")

	sc, err := conf.Scorer.Config()
	require.NoError(t, err)
	assert.Equal(t, testConf(), sc)
}

func TestParseConfigErrors(t *testing.T) {
	cases := []struct {
		name, yaml string
	}{
		{"unknown field", "scorer:\n  wordz: 3\n"},
		{"no vocabulary", "train:\n  optimizer: sgd\n"},
		{"bad dropout", strings.Replace(sampleConfig, "dropout: 0", "dropout: 1.5", 1)},
		{"bad optimizer", strings.Replace(sampleConfig, "optimizer: momentum", "optimizer: rmsprop", 1)},
		{"checkpoint without path", sampleConfig + "  checkpoint_every: 2\n"},
		{"not yaml", "scorer: [\n"},
	}
	for _, c := range cases {
		_, err := ParseConfig(strings.NewReader(c.yaml))
		assert.Equal(t, ErrConfiguration, errors.Cause(err), c.name)
	}
}

func TestLoadConfigFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "words.txt"), []byte("the\ncat\n\nsat\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cats.txt"), []byte("NP\nN\nS\nNP/N\nS\\NP\n"), 0644))
	yaml := `
scorer:
  word_dims: 4
  cell_dims: 6
  category_dims: 3
  dropout: 0
  words_file: words.txt
  categories_file: cats.txt
train:
  optimizer: sgd
  embeddings_file: emb.bin
  checkpoint_every: 1
  checkpoint_path: out/model.ckpt
`
	filename := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(yaml), 0644))

	conf, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "emb.bin"), conf.Train.EmbeddingsFile)
	assert.Equal(t, filepath.Join(dir, "out", "model.ckpt"), conf.Train.CheckpointPath)

	sc, err := conf.Scorer.Config()
	require.NoError(t, err)
	assert.Equal(t, testConf(), sc)

	conf.Scorer.WordsFile = filepath.Join(dir, "missing.txt")
	_, err = conf.Scorer.Config()
	assert.Error(t, err)
}

func TestLoadEmbeddings(t *testing.T) {
	want := []treelstm.WordEmbedding{
		{Word: "cat", Vector: []float32{1, 2, 3, 4}},
		{Word: "sat", Vector: []float32{-1, 0.5, 0, 2}},
	}
	filename := filepath.Join(t.TempDir(), "emb.bin")
	f, err := os.Create(filename)
	require.NoError(t, err)
	w := wire.NewWriter(f)
	for _, e := range want {
		require.NoError(t, w.Write(wire.MarshalWordEmbedding(e)))
	}
	require.NoError(t, f.Close())

	got, err := LoadEmbeddings(filename)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
