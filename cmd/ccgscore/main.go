// Command ccgscore trains and inspects tree-LSTM scorers for CCG derivations.
package main

import (
	"log"
	"os"

	"github.com/gorgonia/neuralccg/wire"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "ccgscore",
	Short:         "Train and inspect tree-LSTM scorers for CCG derivations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVarP(&trainConfig, "config", "c", "config.yaml", "scorer and training configuration")
	trainCmd.Flags().StringVar(&evalTranscripts, "eval", "", "transcripts to evaluate on after training")
	trainCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	trainCmd.Flags().StringVar(&gifOut, "gif", "", "render the gates of every replayed sentence into this file")

	rootCmd.AddCommand(inspectCmd)

	rootCmd.AddCommand(gatesCmd)
	gatesCmd.Flags().StringVar(&gifOut, "gif", "", "also render the gates into this file")

	rootCmd.AddCommand(dotCmd)
	dotCmd.Flags().IntVarP(&dotIndex, "index", "i", 0, "which transcript to render")
}

func readTranscripts(filename string) ([]wire.Transcript, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return wire.ReadAllTranscripts(f)
}
