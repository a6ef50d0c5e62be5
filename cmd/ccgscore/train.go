package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorgonia/neuralccg"
	"github.com/gorgonia/neuralccg/encoding/gif"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	trainConfig     string
	evalTranscripts string
	metricsAddr     string
	gifOut          string
)

var trainCmd = &cobra.Command{
	Use:   "train <transcripts>",
	Short: "Train a scorer by replaying recorded transcripts",
	Long: `Replays delimited transcripts (sentence, scored nodes and update) through a
fresh scorer, or through the one named by scorer.checkpoint, for train.epochs
epochs. Checkpoints and statistics are written where the configuration says.

Example:
  ccgscore train -c conf.yaml --eval dev.bin --metrics-addr :9090 train.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	conf, err := neuralccg.LoadConfig(trainConfig)
	if err != nil {
		return err
	}
	scorerConf, err := conf.Scorer.Config()
	if err != nil {
		return err
	}
	var embeddings []treelstm.WordEmbedding
	if conf.Train.EmbeddingsFile != "" {
		if embeddings, err = neuralccg.LoadEmbeddings(conf.Train.EmbeddingsFile); err != nil {
			return err
		}
	}
	transcripts, err := readTranscripts(args[0])
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", neuralccg.MetricsHandler())
			log.Printf("Serving metrics on %v", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	s := neuralccg.NewSession()
	if err = s.InitializeScorer(scorerConf); err != nil {
		return err
	}
	if err = s.InitializeTraining(conf.Train, embeddings...); err != nil {
		return err
	}

	var enc *gif.Encoder
	var out neuralccg.OutputEncoder
	if gifOut != "" {
		f, err := os.Create(gifOut)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		enc = gif.NewGifEncoder(800, 1200)
		enc.Writer = f
		out = enc
	}

	tr := neuralccg.NewTrainer(s, conf.Train, out)
	trainErr := tr.Train(transcripts)
	s.Log(os.Stderr)
	if trainErr != nil {
		log.Printf("Training finished with failures:\n%v", trainErr)
	}

	if evalTranscripts != "" {
		dev, err := readTranscripts(evalTranscripts)
		if err != nil {
			return err
		}
		acc, err := tr.Evaluate(dev)
		if err != nil {
			return err
		}
		log.Printf("Accuracy on %v: %.4f", evalTranscripts, acc)
	}

	if conf.Train.CheckpointPath != "" {
		return s.SaveCheckpoint(conf.Train.CheckpointPath)
	}
	return nil
}
