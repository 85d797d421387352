package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry tracks pipeline stages, adapter calls and LLM usage.
type Telemetry struct {
	enabled bool

	stageDuration *prometheus.HistogramVec
	stageOutcome  *prometheus.CounterVec
	adapterCalls  *prometheus.CounterVec
	adapterMS     *prometheus.HistogramVec
	llmCalls      prometheus.Counter
	llmTokensIn   prometheus.Counter
	llmTokensOut  prometheus.Counter
}

// New registers the wayfarer metrics on the given registerer. A nil registerer
// yields a disabled no-op instance, convenient for tests.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfarer_stage_duration_seconds",
			Help:    "Duration of each planning stage.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"stage"}),
		stageOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_stage_outcomes_total",
			Help: "Stage completions by outcome.",
		}, []string{"stage", "outcome"}),
		adapterCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_adapter_requests_total",
			Help: "Upstream API requests by adapter and outcome.",
		}, []string{"adapter", "outcome"}),
		adapterMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfarer_adapter_request_seconds",
			Help:    "Upstream API request latency by adapter.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"adapter"}),
		llmCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_llm_requests_total",
			Help: "LLM chat-completion requests.",
		}),
		llmTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_llm_prompt_tokens_total",
			Help: "Prompt tokens consumed.",
		}),
		llmTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_llm_completion_tokens_total",
			Help: "Completion tokens consumed.",
		}),
	}
	if reg == nil {
		return t
	}
	t.enabled = true
	reg.MustRegister(t.stageDuration, t.stageOutcome, t.adapterCalls, t.adapterMS,
		t.llmCalls, t.llmTokensIn, t.llmTokensOut)
	return t
}

func (t *Telemetry) RecordStage(stage string, outcome string, elapsed time.Duration) {
	if !t.enabled {
		return
	}
	t.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	t.stageOutcome.WithLabelValues(stage, outcome).Inc()
}

func (t *Telemetry) RecordAdapter(adapter string, ok bool, elapsed time.Duration) {
	if !t.enabled {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	t.adapterCalls.WithLabelValues(adapter, outcome).Inc()
	t.adapterMS.WithLabelValues(adapter).Observe(elapsed.Seconds())
}

func (t *Telemetry) RecordLLM(promptTokens, completionTokens int64) {
	if !t.enabled {
		return
	}
	t.llmCalls.Inc()
	t.llmTokensIn.Add(float64(promptTokens))
	t.llmTokensOut.Add(float64(completionTokens))
}
