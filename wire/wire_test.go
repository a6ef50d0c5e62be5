package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleTranscript() Transcript {
	return Transcript{
		Sentence: syntax.Sentence{Words: []string{"John", "loves", "Mary"}},
		Nodes: []syntax.Parse{
			syntax.Leaf(syntax.Atomic("NP"), 0),
			syntax.Leaf(syntax.MustParseCategory(`(S\NP)/NP`), 1),
			syntax.Leaf(syntax.Atomic("NP"), 2),
			{Category: syntax.MustParseCategory(`S\NP`), Rule: syntax.FA, Children: []int{1, 2}, Start: 1, End: 2},
			{Category: syntax.Atomic("S"), Rule: syntax.BA, Children: []int{0, 3}, Start: 0, End: 2},
			{Category: syntax.Atomic("N"), Rule: syntax.LEXICON, Start: 2, End: 2},
		},
		Update: &treelstm.Update{Correct: []int{4}, Incorrect: []int{5}},
	}
}

func TestTranscript(t *testing.T) {
	want := exampleTranscript()
	got, err := UnmarshalTranscript(MarshalTranscript(want))
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}

	want.Update = nil
	want.Sentence.Eval = true
	got, err = UnmarshalTranscript(MarshalTranscript(want))
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestInitialGates(t *testing.T) {
	want := treelstm.InitialGates{
		Forward:  []treelstm.Gates{{Input: []float32{0.25, 0.5}, LeftForget: []float32{0.75, 0.5}}},
		Backward: []treelstm.Gates{{Input: []float32{1}, LeftForget: []float32{0}, RightForget: []float32{-0.5}}},
	}
	got, err := UnmarshalInitialGates(MarshalInitialGates(want))
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("gates mismatch (-want +got):\n%s", diff)
	}
}

func TestWordEmbedding(t *testing.T) {
	want := treelstm.WordEmbedding{Word: "cat", Vector: []float32{1, -2, 3.5}}
	got, err := UnmarshalWordEmbedding(MarshalWordEmbedding(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	msg := MarshalSentence(syntax.Sentence{Words: []string{"a"}})
	msg = appendInt(msg, 42, 7)
	msg = appendMessage(msg, 43, []byte("ignored"))
	s, err := UnmarshalSentence(msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, s.Words)
}

func TestMalformed(t *testing.T) {
	cases := [][]byte{
		{0x0a, 0x05, 'a'},                  // truncated string
		{0x10, 0x80},                       // truncated varint
		appendMessage(nil, parseRule, nil), // wrong wire type
	}
	for i, msg := range cases {
		_, err := UnmarshalParse(msg)
		assert.Equal(t, ErrMalformed, errors.Cause(err), "case %d", i)
	}

	// a composite category needs both children
	half := appendMessage(appendInt(nil, catSlash, 0), catLeft, MarshalCategory(syntax.Atomic("S")))
	_, err := UnmarshalCategory(half)
	assert.Equal(t, ErrMalformed, errors.Cause(err))
}

func TestDelimited(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	want := []Transcript{exampleTranscript(), {Sentence: syntax.Sentence{Words: []string{"hi"}}}}
	for _, tr := range want {
		require.NoError(t, w.WriteTranscript(tr))
	}
	require.NoError(t, w.Write(nil))
	full := append([]byte(nil), buf.Bytes()...)

	got, err := ReadAllTranscripts(bytes.NewReader(full))
	require.NoError(t, err)
	require.Len(t, got, 3)
	if diff := cmp.Diff(want, got[:2]); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, got[2].Nodes)

	// cut inside the first message
	r := NewReader(bytes.NewReader(full[:10]))
	_, err = r.Next()
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
}
