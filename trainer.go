package neuralccg

import (
	"bytes"
	"fmt"
	"log"

	"github.com/gorgonia/neuralccg/rqueue"
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/gorgonia/neuralccg/wire"
	"github.com/pkg/errors"
)

// Trainer replays recorded transcripts through a session. Within an epoch the
// transcripts are handed out in random order by a bounded queue.
type Trainer struct {
	*Session
	conf TrainConfig
	enc  OutputEncoder

	epoch int
}

// NewTrainer creates a trainer for a session on which training has been
// initialized. enc may be nil.
func NewTrainer(s *Session, conf TrainConfig, enc OutputEncoder) *Trainer {
	return &Trainer{
		Session: s,
		conf:    conf,
		enc:     enc,
	}
}

// Epoch returns the current epoch.
func (t *Trainer) Epoch() int { return t.epoch }

// Train replays the transcripts for the configured number of epochs. A failing
// transcript is abandoned and training continues; every failure is returned
// at the end.
func (t *Trainer) Train(transcripts []wire.Transcript) error {
	if !t.Training() {
		return errors.Wrap(ErrConfiguration, "training was not initialized")
	}
	var errs manyErr
	for t.epoch = 0; t.epoch < t.conf.Epochs; t.epoch++ {
		log.Printf("Epoch %d: replaying %d transcripts", t.epoch, len(transcripts))
		q := rqueue.New(t.conf.QueueMin, t.conf.QueueMax, t.conf.Seed+int64(t.epoch))
		go func() {
			for _, tr := range transcripts {
				if !q.Push(tr) {
					return
				}
			}
			q.Close()
		}()

		for {
			item, ok := q.Pop()
			if !ok {
				break
			}
			tr := item.(wire.Transcript)
			if err := t.replay(tr, true); err != nil {
				errs = append(errs, errors.WithMessagef(err, "epoch %d, sentence %q", t.epoch, tr.Sentence.Words))
			}
		}

		t.Lock()
		t.closeEpoch()
		e := t.Epochs() - 1
		log.Printf("\tsentences %d, nodes %d, updates %d, errors %d, mean loss %v",
			t.Sentences[e], t.Nodes[e], t.Updates[e], t.Errors[e], t.MeanLoss[e])
		t.Unlock()

		if err := t.checkpoint(); err != nil {
			return err
		}
	}
	if t.enc != nil {
		if err := t.enc.Flush(); err != nil {
			return errors.WithStack(err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (t *Trainer) checkpoint() error {
	if t.conf.StatisticsPath != "" {
		if err := t.DumpStatistics(t.conf.StatisticsPath); err != nil {
			return err
		}
	}
	if t.conf.CheckpointEvery > 0 && (t.epoch+1)%t.conf.CheckpointEvery == 0 {
		return t.SaveCheckpoint(t.conf.CheckpointPath)
	}
	return nil
}

// replay initializes the transcript's sentence, scores its nodes in order and
// applies its update, if it has one and update is true.
func (t *Trainer) replay(tr wire.Transcript, update bool) error {
	withGates := t.enc != nil
	if _, err := t.InitializeSentence(tr.Sentence, false); err != nil {
		return err
	}
	var gates []treelstm.Gates
	if withGates {
		gates = make([]treelstm.Gates, len(tr.Nodes))
	}
	for i, n := range tr.Nodes {
		_, g, err := t.ScoreNode(n, withGates)
		if err != nil {
			return errors.WithMessagef(err, "node %d", i)
		}
		if withGates && g != nil {
			gates[i] = *g
		}
	}
	if withGates {
		if err := t.enc.Encode(tr.Sentence, tr.Nodes, gates); err != nil {
			return errors.WithStack(err)
		}
	}
	if update && tr.Update != nil {
		if _, err := t.ApplyUpdate(*tr.Update); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate scores every transcript that carries an update, without training,
// and returns the fraction for which the best correct node outscores every
// incorrect one.
func (t *Trainer) Evaluate(transcripts []wire.Transcript) (accuracy float32, err error) {
	var total, correct int
	for _, tr := range transcripts {
		if tr.Update == nil {
			continue
		}
		tr.Sentence = syntax.Sentence{Words: tr.Sentence.Words, Eval: true}
		if err = t.replay(tr, false); err != nil {
			return 0, err
		}
		var good, bad float32
		if good, err = t.best(tr.Update.Correct); err != nil {
			return 0, err
		}
		if bad, err = t.best(tr.Update.Incorrect); err != nil {
			return 0, err
		}
		total++
		if good > bad || len(tr.Update.Incorrect) == 0 {
			correct++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float32(correct) / float32(total), nil
}

func (t *Trainer) best(idx []int) (float32, error) {
	var retVal float32
	for i, id := range idx {
		acc, err := t.Accumulated(id)
		if err != nil {
			return 0, err
		}
		if i == 0 || acc > retVal {
			retVal = acc
		}
	}
	return retVal, nil
}

// DumpStatistics writes the per-epoch statistics as CSV.
func (s *Session) DumpStatistics(filename string) error {
	s.Lock()
	defer s.Unlock()
	return s.Statistics.Dump(filename)
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}
