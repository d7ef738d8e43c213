// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値。
const (
	LoginSuccess        = "success"
	LoginInvalidInput   = "invalid_input"
	LoginCaptchaMissing = "captcha_missing"
	LoginCaptchaInvalid = "captcha_invalid"
	LoginInvalidID      = "invalid_login_id"
	LoginError          = "error"
)

// 販売確定の結果のラベル値。
const (
	SaleSold        = "sold"
	SaleForbidden   = "forbidden"
	SaleAlreadySold = "already_sold"
	SaleNotFound    = "not_found"
	SaleError       = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(outcome string)
	RecordCaptchaIssued()
	RecordListingCreated(category string)
	RecordSaleAttempt(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordChallengesPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	captchaIssued   prometheus.Counter
	listingsCreated *prometheus.CounterVec
	saleAttempts    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	challengesPurge prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusmarket_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
		captchaIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusmarket_captcha_issued_total",
			Help: "発行したCAPTCHAチャレンジの合計数",
		}),
		listingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusmarket_listings_created_total",
			Help: "カテゴリ別の出品作成数",
		}, []string{"category"}),
		saleAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusmarket_sale_attempts_total",
			Help: "結果別の販売確定の試行数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusmarket_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "campusmarket_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		challengesPurge: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusmarket_captcha_purged_total",
			Help: "期限切れで削除したCAPTCHAチャレンジの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.captchaIssued,
		c.listingsCreated,
		c.saleAttempts,
		c.httpStatus,
		c.requestLatency,
		c.challengesPurge,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordCaptchaIssued はチャレンジの発行を記録する。
func (c *Collector) RecordCaptchaIssued() {
	c.captchaIssued.Inc()
}

// RecordListingCreated は出品の作成を記録する。
func (c *Collector) RecordListingCreated(category string) {
	c.listingsCreated.WithLabelValues(category).Inc()
}

// RecordSaleAttempt は販売確定の試行結果を記録する。
func (c *Collector) RecordSaleAttempt(outcome string) {
	c.saleAttempts.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordChallengesPurged は削除したチャレンジ数を記録する。
func (c *Collector) RecordChallengesPurged(count int64) {
	c.challengesPurge.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。テストや未設定時に使う。
type NopCollector struct{}

func (NopCollector) RecordLogin(string)                 {}
func (NopCollector) RecordCaptchaIssued()               {}
func (NopCollector) RecordListingCreated(string)        {}
func (NopCollector) RecordSaleAttempt(string)           {}
func (NopCollector) RecordHTTPStatus(int)               {}
func (NopCollector) RecordRequestLatency(time.Duration) {}
func (NopCollector) RecordChallengesPurged(int64)       {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
