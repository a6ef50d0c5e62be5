package treelstm

import (
	"testing"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/stretchr/testify/assert"
)

func TestGatesSummary(t *testing.T) {
	g := Gates{
		Input:       []float32{0.5, 0.2},
		LeftForget:  []float32{0.25, 0.3},
		RightForget: []float32{0.25, 0.5},
	}
	assert.InDeltaSlice(t, []float32{1, 1}, g.Sum(), 1e-6)
	in, left, right := g.Means()
	assert.InDelta(t, 0.35, in, 1e-6)
	assert.InDelta(t, 0.275, left, 1e-6)
	assert.InDelta(t, 0.375, right, 1e-6)
}

func TestInfluence(t *testing.T) {
	nodes := []syntax.Parse{
		{Start: 0, End: 0},
		{Start: 1, End: 1},
		{Children: []int{0, 1}, Start: 0, End: 1},
		{Children: []int{2}, Start: 0, End: 1},
	}
	half := []float32{0.5, 0.5}
	quarter := []float32{0.25, 0.25}
	gates := []Gates{
		{Input: half, LeftForget: quarter, RightForget: quarter},
		{Input: []float32{1, 0}, LeftForget: quarter, RightForget: quarter},
		{Input: half, LeftForget: quarter, RightForget: quarter},
		{Input: half, LeftForget: quarter, RightForget: half},
	}
	inf := Influence(3, nodes, gates)
	assert.Len(t, inf, 4)
	assert.InDelta(t, 0.5, inf[3], 1e-6)
	// 0.5 (unary right forget) * 0.5 (input)
	assert.InDelta(t, 0.25, inf[2], 1e-6)
	// 0.5 * 0.25 (left forget) * 0.5
	assert.InDelta(t, 0.0625, inf[0], 1e-6)
	// 0.5 * 0.25 * mean(1, 0)
	assert.InDelta(t, 0.0625, inf[1], 1e-6)

	assert.Empty(t, Influence(7, nodes, gates))
}

func TestInfluenceSkipsBadChildren(t *testing.T) {
	nodes := []syntax.Parse{
		{Start: 0, End: 0},
		{Children: []int{1}, Start: 0, End: 0},
		{Children: []int{-1, 5}, Start: 0, End: 0},
		{Children: []int{0, 3}, Start: 0, End: 0},
	}
	half := []float32{0.5, 0.5}
	gates := []Gates{
		{Input: half, LeftForget: half, RightForget: half},
		{Input: half, LeftForget: half, RightForget: half},
		{Input: half, LeftForget: half, RightForget: half},
		{Input: half, LeftForget: half, RightForget: half},
	}

	var inf map[int]float32
	assert.NotPanics(t, func() { inf = Influence(1, nodes, gates) })
	assert.Equal(t, map[int]float32{1: 0.5}, inf)

	assert.NotPanics(t, func() { inf = Influence(2, nodes, gates) })
	assert.Equal(t, map[int]float32{2: 0.5}, inf)

	// the valid left child is visited, the self reference is not
	assert.NotPanics(t, func() { inf = Influence(3, nodes, gates) })
	assert.Len(t, inf, 2)
	assert.InDelta(t, 0.25, inf[0], 1e-6)
}
