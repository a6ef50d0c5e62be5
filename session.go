// Package neuralccg scores CCG derivations with a tree-structured LSTM and trains
// it from the updates a parser sends.
package neuralccg

import (
	"bytes"
	"encoding/gob"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Errors returned by a Session.
var (
	ErrConfiguration = treelstm.ErrConfiguration
	ErrSerialization = treelstm.ErrSerialization
	ErrNoScorer      = errors.New("scorer not initialized")
)

// Session is the top level structure and the entry point of the API. It owns
// one scorer, the solver used to train it, and the statistics of the calls
// made through it.
//
// Every method locks the session, so calls from several goroutines are
// serialized. They still refer to whatever sentence was initialized last.
type Session struct {
	Statistics
	sync.Mutex

	conf      treelstm.Config
	newScorer ScorerFactory
	scorer    Scorer
	solver    G.Solver
	optimizer string

	// state of the current sentence
	eval  bool
	nodes int

	buf    bytes.Buffer
	logger *log.Logger
}

// SessionOpt configures a Session.
type SessionOpt func(*Session)

// WithScorerFactory replaces the tree-LSTM scorer.
func WithScorerFactory(f ScorerFactory) SessionOpt {
	return func(s *Session) { s.newScorer = f }
}

// NewSession creates a session without a scorer. Call InitializeScorer
// before anything else.
func NewSession(opts ...SessionOpt) *Session {
	retVal := &Session{
		Statistics: makeStatistics(),
		newScorer:  NewTreeLSTM,
	}
	for _, opt := range opts {
		opt(retVal)
	}
	retVal.logger = log.New(&retVal.buf, "", log.Ltime)
	return retVal
}

// InitializeScorer creates a fresh scorer. If conf names a checkpoint, the
// values stored in it replace the fresh ones. The checkpoint must have been
// written by a scorer of the same shape.
func (s *Session) InitializeScorer(conf treelstm.Config) error {
	s.Lock()
	defer s.Unlock()
	return s.initScorer(conf)
}

func (s *Session) initScorer(conf treelstm.Config) error {
	scorer, err := s.newScorer(conf)
	if err != nil {
		s.failed("initialize_scorer")
		return err
	}
	if conf.Checkpoint != "" {
		var ck checkpoint
		if ck, err = readCheckpoint(conf.Checkpoint); err != nil {
			s.failed("initialize_scorer")
			return err
		}
		if err = scorer.Load(bytes.NewReader(ck.Model)); err != nil {
			s.failed("initialize_scorer")
			return errors.WithMessagef(err, "loading %v", conf.Checkpoint)
		}
		s.logger.Printf("Loaded model values from %v", conf.Checkpoint)
	}
	s.conf = conf
	s.scorer = scorer
	s.solver = nil
	s.logger.Printf("Initialized scorer: %d words, %d categories, %d layers", len(conf.Words), len(conf.Categories), conf.Layers)
	return nil
}

// InitializeTraining prepares the session for updates. The optional
// embeddings overwrite the rows of the words they name.
func (s *Session) InitializeTraining(tc TrainConfig, embeddings ...treelstm.WordEmbedding) error {
	s.Lock()
	defer s.Unlock()
	if s.scorer == nil {
		return errors.WithStack(ErrNoScorer)
	}
	solver, err := treelstm.NewSolver(tc.Optimizer, tc.LearnRate)
	if err != nil {
		s.failed("initialize_training")
		return err
	}
	if len(embeddings) > 0 {
		skipped, err := s.scorer.SetEmbeddings(embeddings)
		if err != nil {
			s.failed("initialize_training")
			return err
		}
		s.logger.Printf("Initialized %d word embeddings. Skipped %d unknown words", len(embeddings)-skipped, skipped)
	}
	s.solver = solver
	s.optimizer = tc.Optimizer
	s.logger.Printf("Initialized training with %v", tc.Optimizer)
	return nil
}

// Training reports whether InitializeTraining has succeeded.
func (s *Session) Training() bool {
	s.Lock()
	defer s.Unlock()
	return s.solver != nil
}

// Config returns the configuration of the current scorer.
func (s *Session) Config() treelstm.Config {
	s.Lock()
	defer s.Unlock()
	return s.conf
}

// InitializeSentence starts a new sentence.
func (s *Session) InitializeSentence(sent syntax.Sentence, withGates bool) (*treelstm.InitialGates, error) {
	s.Lock()
	defer s.Unlock()
	if s.scorer == nil {
		return nil, errors.WithStack(ErrNoScorer)
	}
	gates, err := s.scorer.InitializeSentence(sent, withGates)
	if err != nil {
		s.failed("initialize_sentence")
		return nil, err
	}
	s.eval = sent.Eval
	s.nodes = 0
	s.observeSentence()
	recordSentence(sent)
	return gates, nil
}

// ScoreNode scores the next node of the current sentence.
func (s *Session) ScoreNode(p syntax.Parse, withGates bool) (float32, *treelstm.Gates, error) {
	s.Lock()
	defer s.Unlock()
	if s.scorer == nil {
		return 0, nil, errors.WithStack(ErrNoScorer)
	}
	score, gates, err := s.scorer.ScoreNode(p, withGates)
	if err != nil {
		s.failed("score_node")
		return 0, nil, err
	}
	s.nodes++
	s.observeNode()
	nodesScored.Inc()
	return score, gates, nil
}

// Accumulated returns the accumulated score of the ith node of the current
// sentence.
func (s *Session) Accumulated(i int) (float32, error) {
	s.Lock()
	defer s.Unlock()
	if s.scorer == nil {
		return 0, errors.WithStack(ErrNoScorer)
	}
	return s.scorer.Accumulated(i)
}

// ApplyUpdate takes one training step on the current sentence.
func (s *Session) ApplyUpdate(u treelstm.Update) (float32, error) {
	s.Lock()
	defer s.Unlock()
	if s.scorer == nil {
		return 0, errors.WithStack(ErrNoScorer)
	}
	if s.solver == nil {
		return 0, errors.Wrap(ErrConfiguration, "training was not initialized")
	}
	loss, err := s.scorer.ApplyUpdate(u, s.solver)
	if err != nil {
		s.failed("apply_update")
		return 0, err
	}
	if s.eval {
		s.logger.Printf("Updated on an evaluation sentence")
	}
	s.observeUpdate(loss)
	recordUpdate(u, loss)
	return loss, nil
}

// checkpoint is what SaveCheckpoint writes: the configuration of the scorer
// and its encoded model.
type checkpoint struct {
	Config treelstm.Config
	Model  []byte
}

// SaveCheckpoint writes the scorer configuration and model to filename. The
// file is replaced atomically.
func (s *Session) SaveCheckpoint(filename string) error {
	s.Lock()
	defer s.Unlock()
	if s.scorer == nil {
		return errors.WithStack(ErrNoScorer)
	}
	var model bytes.Buffer
	if err := s.scorer.Save(&model); err != nil {
		return err
	}
	ck := checkpoint{Config: s.conf, Model: model.Bytes()}
	ck.Config.Checkpoint = ""

	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := f.Name()
	enc := gob.NewEncoder(f)
	if err = enc.Encode(ck); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	if err = os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	s.logger.Printf("Saved checkpoint %v", filename)
	return nil
}

// LoadCheckpoint loads the model values stored in filename into the current
// scorer. The stored shapes must match the scorer's configuration; on a
// mismatch the scorer and the training state are left untouched.
func (s *Session) LoadCheckpoint(filename string) error {
	s.Lock()
	defer s.Unlock()
	if s.scorer == nil {
		return errors.WithStack(ErrNoScorer)
	}
	ck, err := readCheckpoint(filename)
	if err != nil {
		s.failed("load_checkpoint")
		return err
	}
	if err = s.scorer.Load(bytes.NewReader(ck.Model)); err != nil {
		s.failed("load_checkpoint")
		return errors.WithMessagef(err, "loading %v", filename)
	}
	s.logger.Printf("Loaded model values from %v", filename)
	return nil
}

// OpenCheckpoint creates a session whose scorer is built from the
// configuration stored in filename and restored from it.
func OpenCheckpoint(filename string, opts ...SessionOpt) (*Session, error) {
	conf, err := CheckpointConfig(filename)
	if err != nil {
		return nil, err
	}
	conf.Checkpoint = filename
	s := NewSession(opts...)
	if err = s.InitializeScorer(conf); err != nil {
		return nil, err
	}
	return s, nil
}

// CheckpointConfig returns the scorer configuration stored in filename.
func CheckpointConfig(filename string) (treelstm.Config, error) {
	ck, err := readCheckpoint(filename)
	if err != nil {
		return treelstm.Config{}, err
	}
	return ck.Config, nil
}

// OpenTreeLSTM restores the tree-LSTM scorer stored in filename.
func OpenTreeLSTM(filename string) (*treelstm.Scorer, error) {
	ck, err := readCheckpoint(filename)
	if err != nil {
		return nil, err
	}
	ck.Config.Checkpoint = ""
	s, err := treelstm.New(ck.Config)
	if err != nil {
		return nil, err
	}
	if err = s.Load(bytes.NewReader(ck.Model)); err != nil {
		return nil, err
	}
	return s, nil
}

func readCheckpoint(filename string) (ck checkpoint, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return ck, errors.WithStack(err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	if err = dec.Decode(&ck); err != nil {
		return ck, errors.Wrapf(ErrSerialization, "decoding %v: %v", filename, err)
	}
	return ck, nil
}

// Log drains the session log into w.
func (s *Session) Log(w io.Writer) error {
	s.Lock()
	defer s.Unlock()
	_, err := s.buf.WriteTo(w)
	return err
}

func (s *Session) failed(op string) {
	s.observeFailure()
	recordError(op)
}
