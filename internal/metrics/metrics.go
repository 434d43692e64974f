// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordTelemetryIngested()
	RecordAudioIngested()
	RecordRetentionEviction(store string, count int)
	RecordAuthFailure(reason string)
	RecordClassifySuccess()
	RecordClassifyFailure()
	RecordClassifyLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	telemetryIngested  prometheus.Counter
	audioIngested      prometheus.Counter
	retentionEvictions *prometheus.CounterVec
	authFailures       *prometheus.CounterVec
	classifySuccess    prometheus.Counter
	classifyFail       prometheus.Counter
	classifyLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		telemetryIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mimamori_telemetry_ingested_total",
			Help: "受信したテレメトリレコードの合計数",
		}),
		audioIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mimamori_audio_ingested_total",
			Help: "受信した録音音声レコードの合計数",
		}),
		retentionEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mimamori_retention_evictions_total",
			Help: "保持上限超過により削除されたレコードの合計数",
		}, []string{"store"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mimamori_auth_failures_total",
			Help: "認証・認可失敗の合計数",
		}, []string{"reason"}),
		classifySuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mimamori_classify_success_total",
			Help: "感情分類成功の合計数",
		}),
		classifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mimamori_classify_fail_total",
			Help: "感情分類失敗の合計数",
		}),
		classifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mimamori_classify_latency_seconds",
			Help:    "感情分類サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.telemetryIngested,
		c.audioIngested,
		c.retentionEvictions,
		c.authFailures,
		c.classifySuccess,
		c.classifyFail,
		c.classifyLatency,
	)

	return c
}

// RecordTelemetryIngested はテレメトリ受信を記録する。
func (c *Collector) RecordTelemetryIngested() {
	c.telemetryIngested.Inc()
}

// RecordAudioIngested は録音音声受信を記録する。
func (c *Collector) RecordAudioIngested() {
	c.audioIngested.Inc()
}

// RecordRetentionEviction は保持上限超過による削除を記録する。
// storeは"watch_data"または"recorded_audio"。
func (c *Collector) RecordRetentionEviction(store string, count int) {
	c.retentionEvictions.WithLabelValues(store).Add(float64(count))
}

// RecordAuthFailure は認証・認可失敗を記録する。
// reasonは"unauthorized"、"invalid_credentials"、"not_owner"など。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// RecordClassifySuccess は感情分類成功を記録する。
func (c *Collector) RecordClassifySuccess() {
	c.classifySuccess.Inc()
}

// RecordClassifyFailure は感情分類失敗を記録する。
func (c *Collector) RecordClassifyFailure() {
	c.classifyFail.Inc()
}

// RecordClassifyLatency は感情分類サービス呼び出しのレイテンシを記録する。
func (c *Collector) RecordClassifyLatency(duration time.Duration) {
	c.classifyLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
