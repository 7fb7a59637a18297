package haptics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal holds a private prometheus registry,
// one per View so tests never collide on registration.
type StatsInternal struct {
	Registry *prometheus.Registry
	Plays    *prometheus.CounterVec
	Playing  *prometheus.GaugeVec
	Effects  *prometheus.CounterVec
	PlayTime prometheus.Histogram
	WWW      *prometheus.CounterVec
}

func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()

	s := &StatsInternal{
		Registry: reg,
		Plays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haptics_play_total",
			Help: "Play requests by pattern and outcome",
		}, []string{"pattern", "outcome"}),
		Playing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "haptics_session_playing",
			Help: "1 while the pattern session is Playing",
		}, []string{"pattern"}),
		Effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haptics_effect_total",
			Help: "Feedback effects triggered by name and result",
		}, []string{"effect", "result"}),
		PlayTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "haptics_play_call_seconds",
			Help:    "Time spent inside Play, compile and start included",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		WWW: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haptics_http_requests_total",
			Help: "API requests by status code and method",
		}, []string{"code", "method"}),
	}

	reg.MustRegister(
		s.Plays, s.Playing, s.Effects, s.PlayTime, s.WWW,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

func (s *StatsInternal) RecPlay(pattern, outcome string, seconds float64) {
	s.Plays.WithLabelValues(pattern, outcome).Inc()
	s.PlayTime.Observe(seconds)
}

func (s *StatsInternal) SetPlaying(pattern string, playing bool) {
	v := 0.0
	if playing {
		v = 1
	}
	s.Playing.WithLabelValues(pattern).Set(v)
}

func (s *StatsInternal) RecEffect(effect, result string) {
	s.Effects.WithLabelValues(effect, result).Inc()
}

func (s *StatsInternal) RecWWW(code, method string) {
	s.WWW.WithLabelValues(code, method).Inc()
}

// Handler serves this registry on /metrics
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}
