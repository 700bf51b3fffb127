package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rushteam/modelcon/core"
)

// Metrics 是单次任务的指标集合，注册在独立的 Registry 上。
// 批处理任务没有常驻的 /metrics 端点，退出时用 WriteTextfile 交给 node_exporter 采集。
type Metrics struct {
	registry *prometheus.Registry

	LinesProcessed     prometheus.Counter
	RecordsWritten     prometheus.Counter
	CandidatesIn       prometheus.Counter
	CandidatesOut      prometheus.Counter
	CandidatesFiltered *prometheus.CounterVec
	JobErrors          *prometheus.CounterVec
	PhaseDuration      *prometheus.GaugeVec
	BatchDuration      prometheus.Histogram
	LastSuccess        prometheus.Gauge
}

// New 创建指标集合；labels 会作为常量标签附加到所有指标（如 app_id、algo_id）。
func New(labels prometheus.Labels) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LinesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name:        "modelcon_prediction_lines_total",
			Help:        "Total number of prediction lines processed",
			ConstLabels: labels,
		}),
		RecordsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name:        "modelcon_records_written_total",
			Help:        "Total number of recommendation records written to the sink",
			ConstLabels: labels,
		}),
		CandidatesIn: factory.NewCounter(prometheus.CounterOpts{
			Name:        "modelcon_candidates_in_total",
			Help:        "Total number of scored candidates read from predictions",
			ConstLabels: labels,
		}),
		CandidatesOut: factory.NewCounter(prometheus.CounterOpts{
			Name:        "modelcon_candidates_out_total",
			Help:        "Total number of items emitted in recommendation records",
			ConstLabels: labels,
		}),
		CandidatesFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "modelcon_candidates_filtered_total",
			Help:        "Total number of candidates dropped, by filter",
			ConstLabels: labels,
		}, []string{"filter"}),
		JobErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "modelcon_job_errors_total",
			Help:        "Fatal job errors, by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		PhaseDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "modelcon_phase_duration_seconds",
			Help:        "Duration of each job phase in seconds",
			ConstLabels: labels,
		}, []string{"phase"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "modelcon_batch_duration_seconds",
			Help:        "Duration of processing and writing one batch of prediction lines",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "modelcon_last_success_timestamp_seconds",
			Help:        "Unix time of the last successful job run",
			ConstLabels: labels,
		}),
	}
}

// Registry 返回底层 Registry。
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Filtered 实现 filter.Observer。
func (m *Metrics) Filtered(name string) {
	m.CandidatesFiltered.WithLabelValues(name).Inc()
}

// ObservePhase 记录某阶段耗时。
func (m *Metrics) ObservePhase(phase string, started time.Time) {
	m.PhaseDuration.WithLabelValues(phase).Set(time.Since(started).Seconds())
}

// RecordError 按错误类别计数；非 JobError 记为 "other"。
func (m *Metrics) RecordError(err error) {
	if err == nil {
		return
	}
	kind := "other"
	if je := core.GetJobError(err); je != nil {
		kind = string(je.Kind)
	}
	m.JobErrors.WithLabelValues(kind).Inc()
}

// MarkSuccess 记录成功完成的时间。
func (m *Metrics) MarkSuccess() {
	m.LastSuccess.SetToCurrentTime()
}

// WriteTextfile 以 node_exporter textfile 格式写出所有指标。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
