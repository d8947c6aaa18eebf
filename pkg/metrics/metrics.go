package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 邮件发送计数
	MailDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_dispatch_total",
			Help: "Total number of outbound mail dispatch attempts",
		},
		[]string{"kind", "outcome", "reason"}, // outcome: success, failed, refused
	)

	// 邮件发送延迟（秒）
	MailDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_dispatch_duration_seconds",
			Help:    "Outbound mail dispatch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"kind", "outcome"},
	)

	// 联系表单结果计数
	ContactOutcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submission_total",
			Help: "Contact submissions by terminal saga state",
		},
		[]string{"state"}, // rejected, notify_failed, confirm_failed, succeeded
	)

	// 访问记录计数
	VisitRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visit_recorded_total",
			Help: "Visit events by traffic class and recording result",
		},
		[]string{"class", "result"}, // class: bot, human; result: recorded, duplicate, sink_error
	)

	// Bot flag disagreements between the caller and the server-side rule.
	VisitBotFlagMismatchTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visit_bot_flag_mismatch_total",
			Help: "Visit events whose caller-supplied bot flag disagrees with the user-agent rule",
		},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	SlowQueryTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordMailDispatch 记录一次邮件发送
func RecordMailDispatch(kind, outcome, reason string, duration time.Duration) {
	kind = mailKind(kind)
	MailDispatchTotal.WithLabelValues(kind, outcome, reason).Inc()
	MailDispatchDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
}

// RecordMailRefused counts a message that never reached the provider.
func RecordMailRefused(kind, reason string) {
	MailDispatchTotal.WithLabelValues(mailKind(kind), "refused", reason).Inc()
}

func mailKind(kind string) string {
	if kind == "" {
		return "other"
	}
	return kind
}

// IncrementContactOutcome 增加联系表单结果计数
func IncrementContactOutcome(state string) {
	ContactOutcomeTotal.WithLabelValues(state).Inc()
}

// IncrementVisitRecorded 增加访问记录计数
func IncrementVisitRecorded(class, result string) {
	VisitRecordedTotal.WithLabelValues(class, result).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
