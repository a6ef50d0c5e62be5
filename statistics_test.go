package neuralccg

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	s := makeStatistics()
	s.observeSentence()
	s.observeNode()
	s.observeNode()
	s.observeUpdate(1)
	s.observeUpdate(2)
	s.closeEpoch()
	s.observeSentence()
	s.observeFailure()
	s.closeEpoch()

	assert.Equal(t, 2, s.Epochs())
	assert.Equal(t, []float32{1.5, 0}, s.MeanLoss)
	assert.Equal(t, []int{2, 0}, s.Updates)

	filename := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, s.Dump(filename))
	b, err := ioutil.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "epoch,sentences,nodes,updates,errors,mean_loss\n0,1,2,2,0,1.5000\n1,1,0,0,1,0.0000\n", string(b))
}
