package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// MaxMessageSize bounds the length prefix a Reader accepts.
const MaxMessageSize = 64 << 20

// Writer writes varint length-prefixed messages.
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Write writes one message.
func (w *Writer) Write(msg []byte) error {
	w.buf = protowire.AppendVarint(w.buf[:0], uint64(len(msg)))
	w.buf = append(w.buf, msg...)
	_, err := w.w.Write(w.buf)
	return errors.WithStack(err)
}

// WriteTranscript writes one transcript.
func (w *Writer) WriteTranscript(t Transcript) error { return w.Write(MarshalTranscript(t)) }

// Reader reads varint length-prefixed messages.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{r: bufio.NewReader(r)} }

// Next returns the next message. It returns io.EOF only at a message
// boundary; a stream cut inside a message is io.ErrUnexpectedEOF.
func (r *Reader) Next() ([]byte, error) {
	size, err := binary.ReadUvarint(r.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(ErrMalformed, "reading length: %v", err)
	}
	if size > MaxMessageSize {
		return nil, errors.Wrapf(ErrMalformed, "message of %d bytes exceeds %d", size, MaxMessageSize)
	}
	msg := make([]byte, size)
	if _, err = io.ReadFull(r.r, msg); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.WithStack(err)
	}
	return msg, nil
}

// ReadTranscript reads one transcript.
func (r *Reader) ReadTranscript() (Transcript, error) {
	msg, err := r.Next()
	if err != nil {
		return Transcript{}, err
	}
	return UnmarshalTranscript(msg)
}

// ReadAllTranscripts reads transcripts until the end of the stream.
func ReadAllTranscripts(rd io.Reader) ([]Transcript, error) {
	r := NewReader(rd)
	var retVal []Transcript
	for {
		t, err := r.ReadTranscript()
		if err == io.EOF {
			return retVal, nil
		}
		if err != nil {
			return retVal, err
		}
		retVal = append(retVal, t)
	}
}
