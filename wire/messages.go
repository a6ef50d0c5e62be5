package wire

import (
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// MarshalCategory encodes a category tree.
func MarshalCategory(c *syntax.Category) []byte {
	var b []byte
	if c.IsAtomic() {
		b = protowire.AppendTag(b, catAtomic, protowire.BytesType)
		return protowire.AppendString(b, c.Atom)
	}
	b = appendInt(b, catSlash, int(c.Slash))
	b = appendMessage(b, catLeft, MarshalCategory(c.Left))
	return appendMessage(b, catRight, MarshalCategory(c.Right))
}

// UnmarshalCategory decodes a category tree.
func UnmarshalCategory(msg []byte) (*syntax.Category, error) {
	c := new(syntax.Category)
	err := visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		var sub []byte
		switch num {
		case catAtomic:
			if sub, n, err = consumeBytes(typ, b); err == nil {
				c.Atom = string(sub)
			}
		case catSlash:
			var s int
			s, n, err = consumeInt(typ, b)
			c.Slash = syntax.Slash(s)
		case catLeft, catRight:
			if sub, n, err = consumeBytes(typ, b); err != nil {
				return
			}
			var child *syntax.Category
			if child, err = UnmarshalCategory(sub); err != nil {
				return
			}
			if num == catLeft {
				c.Left = child
			} else {
				c.Right = child
			}
		default:
			return -1, nil
		}
		return
	})
	if err != nil {
		return nil, err
	}
	if (c.Left == nil) != (c.Right == nil) {
		return nil, errors.Wrap(ErrMalformed, "composite category with one child")
	}
	return c, nil
}

// MarshalSentence encodes a sentence.
func MarshalSentence(s syntax.Sentence) []byte {
	var b []byte
	for _, w := range s.Words {
		b = protowire.AppendTag(b, sentWord, protowire.BytesType)
		b = protowire.AppendString(b, w)
	}
	if s.Eval {
		b = appendBool(b, sentEval, true)
	}
	return b
}

// UnmarshalSentence decodes a sentence.
func UnmarshalSentence(msg []byte) (s syntax.Sentence, err error) {
	err = visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		switch num {
		case sentWord:
			var w []byte
			if w, n, err = consumeBytes(typ, b); err == nil {
				s.Words = append(s.Words, string(w))
			}
		case sentEval:
			s.Eval, n, err = consumeBool(typ, b)
		default:
			return -1, nil
		}
		return
	})
	return s, err
}

// MarshalParse encodes a parse node.
func MarshalParse(p syntax.Parse) []byte {
	var b []byte
	if p.Category != nil {
		b = appendMessage(b, parseCategory, MarshalCategory(p.Category))
	}
	b = appendInt(b, parseRule, int(p.Rule))
	for _, c := range p.Children {
		b = appendInt(b, parseChild, c)
	}
	b = appendInt(b, parseStart, p.Start)
	return appendInt(b, parseEnd, p.End)
}

// UnmarshalParse decodes a parse node.
func UnmarshalParse(msg []byte) (p syntax.Parse, err error) {
	err = visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		var v int
		switch num {
		case parseCategory:
			var sub []byte
			if sub, n, err = consumeBytes(typ, b); err == nil {
				p.Category, err = UnmarshalCategory(sub)
			}
		case parseRule:
			v, n, err = consumeInt(typ, b)
			p.Rule = syntax.RuleType(v)
		case parseChild:
			v, n, err = consumeInt(typ, b)
			p.Children = append(p.Children, v)
		case parseStart:
			p.Start, n, err = consumeInt(typ, b)
		case parseEnd:
			p.End, n, err = consumeInt(typ, b)
		default:
			return -1, nil
		}
		return
	})
	return p, err
}

// MarshalUpdate encodes an update.
func MarshalUpdate(u treelstm.Update) []byte {
	var b []byte
	for _, i := range u.Correct {
		b = appendInt(b, updCorrect, i)
	}
	for _, i := range u.Incorrect {
		b = appendInt(b, updIncorrect, i)
	}
	if u.CRF {
		b = appendBool(b, updCRF, true)
	}
	return b
}

// UnmarshalUpdate decodes an update.
func UnmarshalUpdate(msg []byte) (u treelstm.Update, err error) {
	err = visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		var v int
		switch num {
		case updCorrect:
			v, n, err = consumeInt(typ, b)
			u.Correct = append(u.Correct, v)
		case updIncorrect:
			v, n, err = consumeInt(typ, b)
			u.Incorrect = append(u.Incorrect, v)
		case updCRF:
			u.CRF, n, err = consumeBool(typ, b)
		default:
			return -1, nil
		}
		return
	})
	return u, err
}

// MarshalGates encodes a gate snapshot.
func MarshalGates(g treelstm.Gates) []byte {
	var b []byte
	b = appendFloats(b, gateInput, g.Input)
	b = appendFloats(b, gateLeft, g.LeftForget)
	return appendFloats(b, gateRight, g.RightForget)
}

// UnmarshalGates decodes a gate snapshot.
func UnmarshalGates(msg []byte) (g treelstm.Gates, err error) {
	err = visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		switch num {
		case gateInput:
			g.Input, n, err = consumeFloats(typ, b)
		case gateLeft:
			g.LeftForget, n, err = consumeFloats(typ, b)
		case gateRight:
			g.RightForget, n, err = consumeFloats(typ, b)
		default:
			return -1, nil
		}
		return
	})
	return g, err
}

// MarshalInitialGates encodes the encoder gates of a sentence.
func MarshalInitialGates(ig treelstm.InitialGates) []byte {
	var b []byte
	for _, g := range ig.Forward {
		b = appendMessage(b, initForward, MarshalGates(g))
	}
	for _, g := range ig.Backward {
		b = appendMessage(b, initBackward, MarshalGates(g))
	}
	return b
}

// UnmarshalInitialGates decodes the encoder gates of a sentence.
func UnmarshalInitialGates(msg []byte) (ig treelstm.InitialGates, err error) {
	err = visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		if num != initForward && num != initBackward {
			return -1, nil
		}
		var sub []byte
		if sub, n, err = consumeBytes(typ, b); err != nil {
			return
		}
		var g treelstm.Gates
		if g, err = UnmarshalGates(sub); err != nil {
			return
		}
		if num == initForward {
			ig.Forward = append(ig.Forward, g)
		} else {
			ig.Backward = append(ig.Backward, g)
		}
		return
	})
	return ig, err
}

// MarshalTranscript encodes a transcript.
func MarshalTranscript(t Transcript) []byte {
	var b []byte
	b = appendMessage(b, trSentence, MarshalSentence(t.Sentence))
	for _, p := range t.Nodes {
		b = appendMessage(b, trNode, MarshalParse(p))
	}
	if t.Update != nil {
		b = appendMessage(b, trUpdate, MarshalUpdate(*t.Update))
	}
	return b
}

// UnmarshalTranscript decodes a transcript.
func UnmarshalTranscript(msg []byte) (t Transcript, err error) {
	err = visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		var sub []byte
		switch num {
		case trSentence, trNode, trUpdate:
			if sub, n, err = consumeBytes(typ, b); err != nil {
				return
			}
		default:
			return -1, nil
		}
		switch num {
		case trSentence:
			t.Sentence, err = UnmarshalSentence(sub)
		case trNode:
			var p syntax.Parse
			p, err = UnmarshalParse(sub)
			t.Nodes = append(t.Nodes, p)
		case trUpdate:
			var u treelstm.Update
			u, err = UnmarshalUpdate(sub)
			t.Update = &u
		}
		return
	})
	return t, err
}

// MarshalWordEmbedding encodes an initial word embedding.
func MarshalWordEmbedding(e treelstm.WordEmbedding) []byte {
	var b []byte
	b = protowire.AppendTag(b, embWord, protowire.BytesType)
	b = protowire.AppendString(b, e.Word)
	return appendFloats(b, embValue, e.Vector)
}

// UnmarshalWordEmbedding decodes an initial word embedding.
func UnmarshalWordEmbedding(msg []byte) (e treelstm.WordEmbedding, err error) {
	err = visit(msg, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		switch num {
		case embWord:
			var w []byte
			if w, n, err = consumeBytes(typ, b); err == nil {
				e.Word = string(w)
			}
		case embValue:
			e.Vector, n, err = consumeFloats(typ, b)
		default:
			return -1, nil
		}
		return
	})
	return e, err
}
