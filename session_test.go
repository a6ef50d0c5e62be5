package neuralccg

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRequiresScorer(t *testing.T) {
	s := NewSession()
	_, err := s.InitializeSentence(syntax.Sentence{Words: testWords}, false)
	assert.Equal(t, ErrNoScorer, errors.Cause(err))
	_, _, err = s.ScoreNode(syntax.Leaf(syntax.Atomic("N"), 0), false)
	assert.Equal(t, ErrNoScorer, errors.Cause(err))
	_, err = s.ApplyUpdate(treelstm.Update{Correct: []int{0}, CRF: true})
	assert.Equal(t, ErrNoScorer, errors.Cause(err))
	err = s.InitializeTraining(DefaultTrainConf())
	assert.Equal(t, ErrNoScorer, errors.Cause(err))
	err = s.SaveCheckpoint(filepath.Join(t.TempDir(), "model"))
	assert.Equal(t, ErrNoScorer, errors.Cause(err))
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession(WithScorerFactory(newDummyScorer))

	bad := testConf()
	bad.WordDims = 0
	assert.Equal(t, ErrConfiguration, errors.Cause(s.InitializeScorer(bad)))

	require.NoError(t, s.InitializeScorer(testConf()))
	tr := testTranscript(false)
	scores, err := replayScores(s, tr)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1, 2, 3, 1}, scores)

	acc, err := s.Accumulated(4)
	require.NoError(t, err)
	assert.Equal(t, float32(8), acc)

	_, err = s.ApplyUpdate(*tr.Update)
	assert.Equal(t, ErrConfiguration, errors.Cause(err), "training was not initialized")

	err = s.InitializeTraining(TrainConfig{Optimizer: "rmsprop"})
	assert.Equal(t, ErrConfiguration, errors.Cause(err))
	assert.False(t, s.Training())

	require.NoError(t, s.InitializeTraining(TrainConfig{Optimizer: "sgd", LearnRate: 0.1}))
	assert.True(t, s.Training())
	loss, err := s.ApplyUpdate(*tr.Update)
	require.NoError(t, err)
	assert.Equal(t, float32(1), loss)

	_, err = s.ApplyUpdate(*tr.Update)
	assert.Equal(t, treelstm.ErrInvalidUpdate, errors.Cause(err))

	s.closeEpoch()
	assert.Equal(t, []int{1}, s.Sentences)
	assert.Equal(t, []int{6}, s.Nodes)
	assert.Equal(t, []int{1}, s.Updates)
	assert.Equal(t, []int{3}, s.Errors)
	assert.Equal(t, []float32{1}, s.MeanLoss)

	var buf bytes.Buffer
	require.NoError(t, s.Log(&buf))
	assert.Contains(t, buf.String(), "Initialized training with sgd")
	t.Logf("%v", buf.String())
}

func TestSessionCheckpoint(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "model.ckpt")
	tr := testTranscript(false)
	evalTr := testTranscript(true)

	s := NewSession()
	require.NoError(t, s.InitializeScorer(testConf()))
	require.NoError(t, s.InitializeTraining(TrainConfig{Optimizer: "sgd", LearnRate: 0.05}))
	_, err := replayScores(s, tr)
	require.NoError(t, err)
	_, err = s.ApplyUpdate(*tr.Update)
	require.NoError(t, err)
	want, err := replayScores(s, evalTr)
	require.NoError(t, err)
	require.NoError(t, s.SaveCheckpoint(filename))

	conf, err := CheckpointConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, testConf(), conf)

	opened, err := OpenCheckpoint(filename)
	require.NoError(t, err)
	assert.False(t, opened.Training())
	got, err := replayScores(opened, evalTr)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-6)

	// a configuration that references the checkpoint
	conf = testConf()
	conf.Seed = 7
	conf.Checkpoint = filename
	referenced := NewSession()
	require.NoError(t, referenced.InitializeScorer(conf))
	got, err = replayScores(referenced, evalTr)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-6)

	// shapes must agree
	conf.CellDims = 8
	err = NewSession().InitializeScorer(conf)
	assert.Equal(t, ErrSerialization, errors.Cause(err))

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a checkpoint"), 0644))
	_, err = OpenCheckpoint(garbage)
	assert.Equal(t, ErrSerialization, errors.Cause(err))

	_, err = OpenCheckpoint(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadCheckpointKeepsLiveConfig(t *testing.T) {
	dir := t.TempDir()
	evalTr := testTranscript(true)

	wide := testConf()
	wide.CellDims = 8
	src := NewSession()
	require.NoError(t, src.InitializeScorer(wide))
	mismatched := filepath.Join(dir, "wide.ckpt")
	require.NoError(t, src.SaveCheckpoint(mismatched))

	s := NewSession()
	require.Equal(t, ErrNoScorer, errors.Cause(s.LoadCheckpoint(mismatched)))
	require.NoError(t, s.InitializeScorer(testConf()))
	require.NoError(t, s.InitializeTraining(TrainConfig{Optimizer: "sgd", LearnRate: 0.05}))
	before, err := replayScores(s, evalTr)
	require.NoError(t, err)

	err = s.LoadCheckpoint(mismatched)
	assert.Equal(t, ErrSerialization, errors.Cause(err))
	assert.Equal(t, 6, s.Config().CellDims)
	assert.True(t, s.Training())
	after, err := replayScores(s, evalTr)
	require.NoError(t, err)
	assert.InDeltaSlice(t, before, after, 1e-6)

	// a matching checkpoint is loaded into the live scorer
	conf := testConf()
	conf.Seed = 7
	other := NewSession()
	require.NoError(t, other.InitializeScorer(conf))
	want, err := replayScores(other, evalTr)
	require.NoError(t, err)
	matching := filepath.Join(dir, "model.ckpt")
	require.NoError(t, other.SaveCheckpoint(matching))

	require.NoError(t, s.LoadCheckpoint(matching))
	assert.True(t, s.Training())
	got, err := replayScores(s, evalTr)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-6)
}

func TestInitializeTrainingEmbeddings(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.InitializeScorer(testConf()))

	err := s.InitializeTraining(DefaultTrainConf(), treelstm.WordEmbedding{Word: "cat", Vector: []float32{1, 2}})
	assert.Equal(t, ErrConfiguration, errors.Cause(err), "embeddings must be as wide as the word table")
	assert.False(t, s.Training())

	err = s.InitializeTraining(DefaultTrainConf(),
		treelstm.WordEmbedding{Word: "cat", Vector: []float32{1, 2, 3, 4}},
		treelstm.WordEmbedding{Word: "zebra", Vector: []float32{1, 2, 3, 4}},
	)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, s.Log(&buf))
	assert.Contains(t, buf.String(), "Skipped 1 unknown words")
}
