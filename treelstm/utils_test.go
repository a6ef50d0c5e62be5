package treelstm

import (
	"github.com/chewxy/math32"
	"github.com/gorgonia/neuralccg/syntax"
)

var (
	testWords      = []string{"the", "cat", "sat", "mat"}
	testCategories = []string{"NP", "N", "S", "NP/N", `S\NP`}
	atomicOnly     = []string{"NP", "N", "S"}
)

func smallConf(categories []string) Config {
	conf := DefaultConf(testWords, categories)
	conf.WordDims = 4
	conf.CellDims = 6
	conf.CategoryDims = 3
	conf.Dropout = 0
	return conf
}

// scoreTree scores "the cat" as two leaves and a forward application.
func scoreTree(s *Scorer, eval bool) (scores []float32, gates []*Gates, err error) {
	if _, err = s.InitializeSentence(syntax.Sentence{Words: []string{"the", "cat"}, Eval: eval}, false); err != nil {
		return nil, nil, err
	}
	nodes := []syntax.Parse{
		syntax.Leaf(syntax.MustParseCategory("NP/N"), 0),
		syntax.Leaf(syntax.Atomic("N"), 1),
		{Category: syntax.Atomic("NP"), Rule: syntax.FA, Children: []int{0, 1}, Start: 0, End: 1},
	}
	for _, n := range nodes {
		score, g, err := s.ScoreNode(n, true)
		if err != nil {
			return nil, nil, err
		}
		scores = append(scores, score)
		gates = append(gates, g)
	}
	return scores, gates, nil
}

func matVec(w *Parameter, x []float32) []float32 {
	rows, cols := w.Shape()[0], w.Shape()[1]
	data := w.Data()
	retVal := make([]float32, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			retVal[i] += data[i*cols+j] * x[j]
		}
	}
	return retVal
}

func affineRef(a affineParams, x []float32) []float32 {
	retVal := matVec(a.W, x)
	for i, b := range a.B.Data() {
		retVal[i] += b
	}
	return retVal
}

func concatf(vs ...[]float32) []float32 {
	var retVal []float32
	for _, v := range vs {
		retVal = append(retVal, v...)
	}
	return retVal
}

func mapf(a []float32, f func(float32) float32) []float32 {
	retVal := make([]float32, len(a))
	for i, v := range a {
		retVal[i] = f(v)
	}
	return retVal
}

func sigmoidf(x float32) float32 { return 1 / (1 + math32.Exp(-x)) }

func snapshot(s *Scorer) [][]float32 {
	retVal := make([][]float32, len(s.params))
	for i, p := range s.params {
		retVal[i] = append([]float32(nil), p.Data()...)
	}
	return retVal
}
