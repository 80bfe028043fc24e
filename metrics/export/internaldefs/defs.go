package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/tokenauth"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "tokenauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Successful login attempts."},
	{ID: tokenauth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Login attempts rejected for bad credentials."},
	{ID: tokenauth.MetricRefreshSuccess, Name: "tokenauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: tokenauth.MetricRefreshInvalid, Name: "tokenauth_refresh_invalid_total", Help: "Refresh attempts with an invalid or expired token."},
	{ID: tokenauth.MetricRefreshRevoked, Name: "tokenauth_refresh_revoked_total", Help: "Refresh attempts with a token that is no longer a live session."},
	{ID: tokenauth.MetricSessionCreated, Name: "tokenauth_session_created_total", Help: "Created sessions."},
	{ID: tokenauth.MetricSessionInvalidated, Name: "tokenauth_session_invalidated_total", Help: "Sessions removed by logout."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Single-session logout operations."},
	{ID: tokenauth.MetricLogoutAll, Name: "tokenauth_logout_all_total", Help: "Logout-all operations."},
	{ID: tokenauth.MetricAccessVerifyFailure, Name: "tokenauth_access_verify_failure_total", Help: "Rejected access tokens."},
	{ID: tokenauth.MetricInternalError, Name: "tokenauth_internal_error_total", Help: "Operations that failed for an unexpected reason."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricLoginLatency, Name: "tokenauth_login_latency_seconds", Help: "Login latency histogram."},
	{ID: tokenauth.MetricRefreshLatency, Name: "tokenauth_refresh_latency_seconds", Help: "Refresh latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf and has no entry here.
var HistogramUpperBounds = [tokenauth.HistogramBucketCount - 1]float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
}

// BucketLabel returns the upper bound of engine bucket i as an "le" label
// value, "+Inf" for the overflow bucket.
func BucketLabel(i int) string {
	if i < len(HistogramUpperBounds) {
		return strconv.FormatFloat(HistogramUpperBounds[i], 'g', -1, 64)
	}
	return "+Inf"
}

// NormalizeBuckets copies raw into a fixed array, truncating or zero-filling.
func NormalizeBuckets(raw []uint64) [tokenauth.HistogramBucketCount]uint64 {
	var out [tokenauth.HistogramBucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [tokenauth.HistogramBucketCount]uint64) [tokenauth.HistogramBucketCount]uint64 {
	var out [tokenauth.HistogramBucketCount]uint64
	var running uint64
	for i := range raw {
		running += raw[i]
		out[i] = running
	}
	return out
}
