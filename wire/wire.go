// Package wire encodes the messages exchanged with a host parser as protobuf
// wire format, and frames them as length-delimited records.
package wire

import (
	"github.com/chewxy/math32"
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for messages that cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Transcript is everything a host sent for one sentence: the sentence, the
// nodes it asked to be scored, in order, and the update it finished with, if any.
type Transcript struct {
	Sentence syntax.Sentence
	Nodes    []syntax.Parse
	Update   *treelstm.Update
}

// field numbers
const (
	catAtomic protowire.Number = 1
	catSlash  protowire.Number = 2
	catLeft   protowire.Number = 3
	catRight  protowire.Number = 4

	sentWord protowire.Number = 1
	sentEval protowire.Number = 2

	parseCategory protowire.Number = 1
	parseRule     protowire.Number = 2
	parseChild    protowire.Number = 3
	parseStart    protowire.Number = 4
	parseEnd      protowire.Number = 5

	updCorrect   protowire.Number = 1
	updIncorrect protowire.Number = 2
	updCRF       protowire.Number = 3

	gateInput protowire.Number = 1
	gateLeft  protowire.Number = 2
	gateRight protowire.Number = 3

	initForward  protowire.Number = 1
	initBackward protowire.Number = 2

	trSentence protowire.Number = 1
	trNode     protowire.Number = 2
	trUpdate   protowire.Number = 3

	embWord  protowire.Number = 1
	embValue protowire.Number = 2
)

func appendInt(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendFloats(b []byte, num protowire.Number, vs []float32) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed32(packed, math32.Float32bits(v))
	}
	return appendMessage(b, num, packed)
}

// visit calls fn for every field of msg.
func visit(msg []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return errors.Wrapf(ErrMalformed, "%v", protowire.ParseError(n))
		}
		msg = msg[n:]
		m, err := fn(num, typ, msg)
		if err != nil {
			return err
		}
		if m < 0 {
			// unknown field: skip it
			if m = protowire.ConsumeFieldValue(num, typ, msg); m < 0 {
				return errors.Wrapf(ErrMalformed, "field %d: %v", num, protowire.ParseError(m))
			}
		}
		msg = msg[m:]
	}
	return nil
}

func consumeInt(typ protowire.Type, b []byte) (int, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, errors.Wrapf(ErrMalformed, "expected a varint. Got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, errors.Wrapf(ErrMalformed, "%v", protowire.ParseError(n))
	}
	return int(protowire.DecodeZigZag(v)), n, nil
}

func consumeBool(typ protowire.Type, b []byte) (bool, int, error) {
	if typ != protowire.VarintType {
		return false, 0, errors.Wrapf(ErrMalformed, "expected a varint. Got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return false, 0, errors.Wrapf(ErrMalformed, "%v", protowire.ParseError(n))
	}
	return protowire.DecodeBool(v), n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errors.Wrapf(ErrMalformed, "expected bytes. Got wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, errors.Wrapf(ErrMalformed, "%v", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeFloats(typ protowire.Type, b []byte) ([]float32, int, error) {
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return nil, 0, err
	}
	if len(packed)%4 != 0 {
		return nil, 0, errors.Wrapf(ErrMalformed, "packed floats of %d bytes", len(packed))
	}
	retVal := make([]float32, 0, len(packed)/4)
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed32(packed)
		retVal = append(retVal, math32.Float32frombits(v))
		packed = packed[m:]
	}
	return retVal, n, nil
}
