package neuralccg

import (
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/gorgonia/neuralccg/wire"
)

var (
	testWords      = []string{"the", "cat", "sat"}
	testCategories = []string{"NP", "N", "S", "NP/N", `S\NP`}
)

func testConf() treelstm.Config {
	conf := treelstm.DefaultConf(testWords, testCategories)
	conf.WordDims = 4
	conf.CellDims = 6
	conf.CategoryDims = 3
	conf.Dropout = 0
	return conf
}

// testTranscript is "the cat sat" with its correct derivation (nodes 0 to 4)
// and one wrong supertag for "cat" (node 5).
func testTranscript(eval bool) wire.Transcript {
	return wire.Transcript{
		Sentence: syntax.Sentence{Words: []string{"the", "cat", "sat"}, Eval: eval},
		Nodes: []syntax.Parse{
			syntax.Leaf(syntax.MustParseCategory("NP/N"), 0),
			syntax.Leaf(syntax.Atomic("N"), 1),
			syntax.Leaf(syntax.MustParseCategory(`S\NP`), 2),
			{Category: syntax.Atomic("NP"), Rule: syntax.FA, Children: []int{0, 1}, Start: 0, End: 1},
			{Category: syntax.Atomic("S"), Rule: syntax.BA, Children: []int{3, 2}, Start: 0, End: 2},
			syntax.Leaf(syntax.Atomic("NP"), 1),
		},
		Update: &treelstm.Update{Correct: []int{4}, Incorrect: []int{5}},
	}
}

func replayScores(s *Session, tr wire.Transcript) ([]float32, error) {
	if _, err := s.InitializeSentence(tr.Sentence, false); err != nil {
		return nil, err
	}
	retVal := make([]float32, 0, len(tr.Nodes))
	for _, n := range tr.Nodes {
		score, _, err := s.ScoreNode(n, false)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, score)
	}
	return retVal, nil
}
