package neuralccg

import (
	"encoding/csv"
	"os"
	"strconv"

	"gorgonia.org/vecf32"
)

// Statistics are per-epoch counts of what went through a session.
type Statistics struct {
	Sentences []int
	Nodes     []int
	Updates   []int
	Errors    []int
	MeanLoss  []float32

	cur epochStats
}

type epochStats struct {
	sentences, nodes, errors int
	losses                   []float32
}

func makeStatistics() Statistics {
	return Statistics{
		Sentences: make([]int, 0, 64),
		Nodes:     make([]int, 0, 64),
		Updates:   make([]int, 0, 64),
		Errors:    make([]int, 0, 64),
		MeanLoss:  make([]float32, 0, 64),
	}
}

func (s *Statistics) observeSentence()           { s.cur.sentences++ }
func (s *Statistics) observeNode()               { s.cur.nodes++ }
func (s *Statistics) observeFailure()            { s.cur.errors++ }
func (s *Statistics) observeUpdate(loss float32) { s.cur.losses = append(s.cur.losses, loss) }

// Epochs returns the number of closed epochs.
func (s *Statistics) Epochs() int { return len(s.Sentences) }

// closeEpoch appends the counts gathered since the last call.
func (s *Statistics) closeEpoch() {
	var mean float32
	if n := len(s.cur.losses); n > 0 {
		mean = vecf32.Sum(s.cur.losses) / float32(n)
	}
	s.Sentences = append(s.Sentences, s.cur.sentences)
	s.Nodes = append(s.Nodes, s.cur.nodes)
	s.Updates = append(s.Updates, len(s.cur.losses))
	s.Errors = append(s.Errors, s.cur.errors)
	s.MeanLoss = append(s.MeanLoss, mean)
	s.cur = epochStats{}
}

// Dump writes one CSV row per epoch into filename.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"epoch", "sentences", "nodes", "updates", "errors", "mean_loss"}); err != nil {
		return err
	}
	records := make([][]string, 0, len(s.Sentences))
	for i := range s.Sentences {
		records = append(records, []string{
			strconv.Itoa(i),
			strconv.Itoa(s.Sentences[i]),
			strconv.Itoa(s.Nodes[i]),
			strconv.Itoa(s.Updates[i]),
			strconv.Itoa(s.Errors[i]),
			strconv.FormatFloat(float64(s.MeanLoss[i]), 'f', 4, 32),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
