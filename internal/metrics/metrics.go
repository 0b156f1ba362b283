package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"arogya/internal/router"
)

var (
	Consultations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arogya_consultations_total",
		Help: "Consultations answered, by response channel and status",
	}, []string{"channel", "status"})

	ConsultationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arogya_consultation_duration_seconds",
		Help:    "Time to answer a consultation including speech synthesis",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	Transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arogya_transcriptions_total",
		Help: "Audio transcriptions attempted, by outcome",
	}, []string{"status"})
)

const (
	StatusOK      = "ok"
	StatusNoAudio = "no_audio"
	StatusError   = "error"
)

// Observe records one finished consultation.
func Observe(resp router.Response, elapsed time.Duration) {
	ConsultationDuration.Observe(elapsed.Seconds())

	if resp.Transcription != nil {
		Transcriptions.WithLabelValues(resp.Transcription.Status.String()).Inc()
	}

	channel := string(resp.Channel)
	if channel == "" {
		channel = "none"
	}
	Consultations.WithLabelValues(channel, status(resp)).Inc()
}

func status(resp router.Response) string {
	switch {
	case resp.Failed():
		return StatusError
	case !resp.HasAudio():
		return StatusNoAudio
	default:
		return StatusOK
	}
}
