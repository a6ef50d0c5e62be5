package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chewxy/math32"
	"github.com/gorgonia/neuralccg"
	"github.com/gorgonia/neuralccg/encoding/gif"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/gorgonia/neuralccg/wire"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorgonia.org/vecf32"
)

var dotIndex int

var inspectCmd = &cobra.Command{
	Use:   "inspect <checkpoint>",
	Short: "Print the configuration and parameters stored in a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := neuralccg.OpenTreeLSTM(args[0])
		if err != nil {
			return err
		}
		conf := s.Config
		fmt.Printf("words %d, categories %d\n", s.Words().Len(), s.Categories().Len())
		fmt.Printf("dims: word %d, cell %d, category %d. layers %d, dropout %v\n",
			conf.WordDims, conf.CellDims, conf.CategoryDims, conf.Layers, conf.Dropout)
		fmt.Printf("chars %t, compositional %t, coupled %t, output gate %t, recursive %t\n",
			conf.UseChars, conf.Compositional, conf.CoupleGates, conf.OutputGate, conf.Recursive)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "parameter\tshape\tnorm")
		for _, p := range s.Model() {
			fmt.Fprintf(w, "%s\t%v\t%.4f\n", p.Name(), p.Shape(), norm(p.Data()))
		}
		return w.Flush()
	},
}

var gatesCmd = &cobra.Command{
	Use:   "gates <checkpoint> <transcripts>",
	Short: "Print the mean gate activations of every scored node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := neuralccg.OpenCheckpoint(args[0])
		if err != nil {
			return err
		}
		transcripts, err := readTranscripts(args[1])
		if err != nil {
			return err
		}

		var enc *gif.Encoder
		if gifOut != "" {
			f, err := os.Create(gifOut)
			if err != nil {
				return errors.WithStack(err)
			}
			defer f.Close()
			enc = gif.NewGifEncoder(800, 1200)
			enc.Writer = f
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for i, tr := range transcripts {
			tr.Sentence.Eval = true
			gates, err := replayGates(s, tr)
			if err != nil {
				return errors.WithMessagef(err, "transcript %d", i)
			}
			fmt.Fprintf(w, "# %d\t%v\n", i, tr.Sentence.Words)
			infl := treelstm.Influence(len(tr.Nodes)-1, tr.Nodes, gates)
			for j, n := range tr.Nodes {
				in, left, right := gates[j].Means()
				fmt.Fprintf(w, "%d\t%v\t%.3f\t%.3f\t%.3f\t%.3f\n", j, n, in, left, right, infl[j])
			}
			if enc != nil {
				if err = enc.Encode(tr.Sentence, tr.Nodes, gates); err != nil {
					return err
				}
			}
		}
		if err = w.Flush(); err != nil {
			return err
		}
		if enc != nil {
			return enc.Flush()
		}
		return nil
	},
}

var dotCmd = &cobra.Command{
	Use:   "dot <checkpoint> <transcripts>",
	Short: "Print the expression graph of one transcript in graphviz format",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := neuralccg.OpenTreeLSTM(args[0])
		if err != nil {
			return err
		}
		transcripts, err := readTranscripts(args[1])
		if err != nil {
			return err
		}
		if dotIndex < 0 || dotIndex >= len(transcripts) {
			return errors.Errorf("transcript %d out of %d", dotIndex, len(transcripts))
		}
		tr := transcripts[dotIndex]
		tr.Sentence.Eval = true
		if _, err = s.InitializeSentence(tr.Sentence, false); err != nil {
			return err
		}
		for _, n := range tr.Nodes {
			if _, _, err = s.ScoreNode(n, false); err != nil {
				return err
			}
		}
		fmt.Println(s.Dot())
		return nil
	},
}

func replayGates(s *neuralccg.Session, tr wire.Transcript) ([]treelstm.Gates, error) {
	if _, err := s.InitializeSentence(tr.Sentence, false); err != nil {
		return nil, err
	}
	retVal := make([]treelstm.Gates, len(tr.Nodes))
	for i, n := range tr.Nodes {
		_, g, err := s.ScoreNode(n, true)
		if err != nil {
			return nil, err
		}
		retVal[i] = *g
	}
	return retVal, nil
}

func norm(a []float32) float32 {
	sq := make([]float32, len(a))
	copy(sq, a)
	vecf32.Mul(sq, a)
	return math32.Sqrt(vecf32.Sum(sq))
}
