package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StatementsTotal 按驱动、语句类型与结果统计发送的语句
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmodel_statements_total",
			Help: "Total number of SQL statements executed",
		},
		[]string{"driver", "op", "status"},
	)
	// StatementDuration 语句耗时
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbmodel_statement_duration_seconds",
			Help:    "SQL statement latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "op"},
	)
	// SlowStatementsTotal 超过慢查询阈值的语句数
	SlowStatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmodel_slow_statements_total",
			Help: "Total number of slow SQL statements",
		},
		[]string{"driver"},
	)
	// CacheLookupsTotal 主键缓存查询结果（hit、miss、error）
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmodel_cache_lookups_total",
			Help: "Total number of identity cache lookups",
		},
		[]string{"model", "result"},
	)
	// CommitsTotal 按模型与写入类型统计提交
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmodel_commits_total",
			Help: "Total number of record commits",
		},
		[]string{"model", "kind", "status"},
	)
)

// Status 将错误映射为结果标签
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler 返回 /metrics 使用的 Prometheus handler
func Handler() http.Handler {
	return promhttp.Handler()
}
