package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "venuego"

// Metrics はアプリケーションのメトリクスを管理する
// nil レシーバでも記録メソッドは安全に呼べる
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 仮押さえの結果（result: created, existing, slot_full, closed, lock_failed, error）
	ClaimsTotal *prometheus.CounterVec

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec

	// 決済結果の処理（outcome: confirmed, duplicate, hold_expired, cancelled, error）
	PaymentResultsTotal *prometheus.CounterVec

	// 期限切れスイープ（result: expired, skipped, failed）
	HoldSweepTotal *prometheus.CounterVec

	// スイープ1回の所要時間
	HoldSweepDuration prometheus.Histogram

	// 発行したチケット数
	TicketsIssuedTotal prometheus.Counter

	// 入場検証の結果（outcome: admit, bad_signature, unknown_ticket, mismatch, already_used, not_yet_open, error）
	CheckInsTotal *prometheus.CounterVec

	// 返金補償（status: pending, refunded, failed）
	CompensationsTotal *prometheus.CounterVec

	// ドメインイベント発行の失敗（event）
	EventPublishFailuresTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ClaimsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claims_total",
				Help:      "Total number of slot claim attempts by result",
			},
			[]string{"result"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "distributed_lock_duration_seconds",
				Help:      "Time spent on distributed lock operations",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		PaymentResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_results_total",
				Help:      "Payment processor callbacks by outcome",
			},
			[]string{"outcome"},
		),
		HoldSweepTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hold_sweep_reservations_total",
				Help:      "Reservations visited by the hold expiry sweep by result",
			},
			[]string{"result"},
		),
		HoldSweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hold_sweep_duration_seconds",
				Help:      "Duration of a single hold expiry sweep",
				Buckets:   prometheus.DefBuckets,
			},
		),
		TicketsIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tickets_issued_total",
				Help:      "Tickets minted",
			},
		),
		CheckInsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkins_total",
				Help:      "Check-in validations by outcome",
			},
			[]string{"outcome"},
		),
		CompensationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compensations_total",
				Help:      "Refund compensations by status transition",
			},
			[]string{"status"},
		),
		EventPublishFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_publish_failures_total",
				Help:      "Domain events that could not be published",
			},
			[]string{"event"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ClaimsTotal,
		m.DistributedLockDuration,
		m.PaymentResultsTotal,
		m.HoldSweepTotal,
		m.HoldSweepDuration,
		m.TicketsIssuedTotal,
		m.CheckInsTotal,
		m.CompensationsTotal,
		m.EventPublishFailuresTotal,
	)

	return m
}

// HTTPRequest はHTTPリクエスト1件を記録する
func (m *Metrics) HTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) Claim(result string) {
	if m == nil {
		return
	}
	m.ClaimsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) LockDuration(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

func (m *Metrics) PaymentResult(outcome string) {
	if m == nil {
		return
	}
	m.PaymentResultsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Sweep(expired, skipped, failed int, d time.Duration) {
	if m == nil {
		return
	}
	m.HoldSweepTotal.WithLabelValues("expired").Add(float64(expired))
	m.HoldSweepTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.HoldSweepTotal.WithLabelValues("failed").Add(float64(failed))
	m.HoldSweepDuration.Observe(d.Seconds())
}

func (m *Metrics) TicketIssued() {
	if m == nil {
		return
	}
	m.TicketsIssuedTotal.Inc()
}

func (m *Metrics) CheckIn(outcome string) {
	if m == nil {
		return
	}
	m.CheckInsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Compensation(status string) {
	if m == nil {
		return
	}
	m.CompensationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) EventPublishFailed(event string) {
	if m == nil {
		return
	}
	m.EventPublishFailuresTotal.WithLabelValues(event).Inc()
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
