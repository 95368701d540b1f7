// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordUserCreated()
	RecordSuperuserCreated()
	RecordAddressProvisioned()
	RecordProvisionFail()
	RecordLoginSuccess()
	RecordLoginFail()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	usersCreated       prometheus.Counter
	superusersCreated  prometheus.Counter
	addressProvisioned prometheus.Counter
	provisionFail      prometheus.Counter
	loginSuccess       prometheus.Counter
	loginFail          prometheus.Counter
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accountman_users_created_total",
			Help: "作成されたユーザーの合計数",
		}),
		superusersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accountman_superusers_created_total",
			Help: "作成されたスーパーユーザーの合計数",
		}),
		addressProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accountman_addresses_provisioned_total",
			Help: "自動作成された住所の合計数",
		}),
		provisionFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accountman_provision_fail_total",
			Help: "住所の自動作成失敗の合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accountman_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accountman_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.usersCreated,
		c.superusersCreated,
		c.addressProvisioned,
		c.provisionFail,
		c.loginSuccess,
		c.loginFail,
		c.httpStatus,
	)

	return c
}

// RecordUserCreated はユーザー作成を記録する。
func (c *Collector) RecordUserCreated() {
	c.usersCreated.Inc()
}

// RecordSuperuserCreated はスーパーユーザー作成を記録する。
func (c *Collector) RecordSuperuserCreated() {
	c.superusersCreated.Inc()
}

// RecordAddressProvisioned は住所の自動作成を記録する。
func (c *Collector) RecordAddressProvisioned() {
	c.addressProvisioned.Inc()
}

// RecordProvisionFail は住所の自動作成失敗を記録する。
func (c *Collector) RecordProvisionFail() {
	c.provisionFail.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFail はログイン失敗を記録する。
func (c *Collector) RecordLoginFail() {
	c.loginFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
