package internaldefs

import (
	goPasswordless "github.com/MrEthical07/goPasswordless"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goPasswordless.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goPasswordless.MetricID
	Name string
	Help string
}

const (
	AuditDroppedName   = "gopasswordless_audit_dropped_total"
	AuditDroppedHelp   = "Dropped audit events due to dispatcher backpressure."
	AuditDeliveredName = "gopasswordless_audit_delivered_total"
	AuditDeliveredHelp = "Audit events handed to the sink."

	// AuditEventsName carries both audit counts under an "outcome" attribute.
	AuditEventsName = "gopasswordless_audit_events_total"
	AuditEventsHelp = "Audit events by dispatcher outcome."
)

var CounterDefs = []CounterDef{
	{ID: goPasswordless.MetricTokenRequestSuccess, Name: "gopasswordless_token_request_success_total", Help: "Login tokens issued and delivered."},
	{ID: goPasswordless.MetricTokenRequestFailure, Name: "gopasswordless_token_request_failure_total", Help: "Login token requests that failed."},
	{ID: goPasswordless.MetricTokenRequestRateLimited, Name: "gopasswordless_token_request_rate_limited_total", Help: "Rate-limited login token requests."},
	{ID: goPasswordless.MetricUserCreated, Name: "gopasswordless_user_created_total", Help: "Users created on first token request."},
	{ID: goPasswordless.MetricTokenRedeemSuccess, Name: "gopasswordless_token_redeem_success_total", Help: "Successful token logins."},
	{ID: goPasswordless.MetricTokenRedeemFailure, Name: "gopasswordless_token_redeem_failure_total", Help: "Failed token logins."},
	{ID: goPasswordless.MetricTokenRedeemRateLimited, Name: "gopasswordless_token_redeem_rate_limited_total", Help: "Rate-limited token logins."},
	{ID: goPasswordless.MetricTokenAttemptsExceeded, Name: "gopasswordless_token_attempts_exceeded_total", Help: "Tokens invalidated due to attempt cap."},
	{ID: goPasswordless.MetricTokenExpired, Name: "gopasswordless_token_expired_total", Help: "Token logins rejected as expired."},
	{ID: goPasswordless.MetricSessionCreated, Name: "gopasswordless_session_created_total", Help: "Created sessions."},
	{ID: goPasswordless.MetricLogout, Name: "gopasswordless_logout_total", Help: "Logout operations."},
	{ID: goPasswordless.MetricValidateSuccess, Name: "gopasswordless_validate_success_total", Help: "Accepted access tokens."},
	{ID: goPasswordless.MetricValidateFailure, Name: "gopasswordless_validate_failure_total", Help: "Rejected access tokens."},
}

var HistogramDefs = []HistogramDef{
	{ID: goPasswordless.MetricRedeemLatency, Name: "gopasswordless_redeem_latency_seconds", Help: "Token login latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
