package goPasswordless

import "github.com/MrEthical07/goPasswordless/internal/metrics"

// MetricID identifies one engine counter or histogram.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of engine metrics.
type MetricsSnapshot = metrics.Snapshot

const (
	MetricTokenRequestSuccess     = metrics.MetricTokenRequestSuccess
	MetricTokenRequestFailure     = metrics.MetricTokenRequestFailure
	MetricTokenRequestRateLimited = metrics.MetricTokenRequestRateLimited
	MetricUserCreated             = metrics.MetricUserCreated
	MetricTokenRedeemSuccess      = metrics.MetricTokenRedeemSuccess
	MetricTokenRedeemFailure      = metrics.MetricTokenRedeemFailure
	MetricTokenRedeemRateLimited  = metrics.MetricTokenRedeemRateLimited
	MetricTokenAttemptsExceeded   = metrics.MetricTokenAttemptsExceeded
	MetricTokenExpired            = metrics.MetricTokenExpired
	MetricSessionCreated          = metrics.MetricSessionCreated
	MetricLogout                  = metrics.MetricLogout
	MetricValidateSuccess         = metrics.MetricValidateSuccess
	MetricValidateFailure         = metrics.MetricValidateFailure
	MetricRedeemLatency           = metrics.MetricRedeemLatency
)
