package neuralccg

import (
	"net/http"

	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// sentencesTotal counts initialized sentences by mode
	sentencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuralccg_sentences_total",
		Help: "Total sentences initialized, by mode",
	}, []string{"mode"})

	sentenceLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "neuralccg_sentence_words",
		Help:    "Number of words per initialized sentence",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128 words
	})

	nodesScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neuralccg_nodes_scored_total",
		Help: "Total derivation nodes scored",
	})

	// updatesTotal counts updates by loss
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuralccg_updates_total",
		Help: "Total updates applied, by loss",
	}, []string{"loss"})

	updateLoss = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "neuralccg_update_loss",
		Help:    "Loss of every applied update",
		Buckets: []float64{-10, -1, 0, 0.1, 0.5, 1, 2, 5, 10, 50},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neuralccg_errors_total",
		Help: "Total failed session operations, by operation",
	}, []string{"operation"})
)

func recordSentence(sent syntax.Sentence) {
	mode := "train"
	if sent.Eval {
		mode = "eval"
	}
	sentencesTotal.WithLabelValues(mode).Inc()
	sentenceLength.Observe(float64(sent.Len()))
}

func recordUpdate(u treelstm.Update, loss float32) {
	kind := "margin"
	if u.CRF {
		kind = "crf"
	}
	updatesTotal.WithLabelValues(kind).Inc()
	updateLoss.Observe(float64(loss))
}

func recordError(op string) { errorsTotal.WithLabelValues(op).Inc() }

// MetricsHandler serves the metrics of every session in the process.
func MetricsHandler() http.Handler { return promhttp.Handler() }
