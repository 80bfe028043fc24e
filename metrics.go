package tokenauth

import internalmetrics "github.com/MrEthical07/tokenauth/internal/metrics"

// Metric identifiers exposed by [Engine.MetricsSnapshot].
const (
	MetricLoginSuccess        = internalmetrics.MetricLoginSuccess
	MetricLoginFailure        = internalmetrics.MetricLoginFailure
	MetricRefreshSuccess      = internalmetrics.MetricRefreshSuccess
	MetricRefreshInvalid      = internalmetrics.MetricRefreshInvalid
	MetricRefreshRevoked      = internalmetrics.MetricRefreshRevoked
	MetricSessionCreated      = internalmetrics.MetricSessionCreated
	MetricSessionInvalidated  = internalmetrics.MetricSessionInvalidated
	MetricLogout              = internalmetrics.MetricLogout
	MetricLogoutAll           = internalmetrics.MetricLogoutAll
	MetricAccessVerifyFailure = internalmetrics.MetricAccessVerifyFailure
	MetricInternalError       = internalmetrics.MetricInternalError
	MetricLoginLatency        = internalmetrics.MetricLoginLatency
	MetricRefreshLatency      = internalmetrics.MetricRefreshLatency
)

// HistogramBucketCount is the number of latency buckets in a snapshot
// histogram. Bucket upper bounds are 5, 10, 25, 50, 100, 250 and 500ms,
// with the last bucket unbounded.
const HistogramBucketCount = internalmetrics.HistogramBucketCount

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}
