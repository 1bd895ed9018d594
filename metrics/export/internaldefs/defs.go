package internaldefs

import "github.com/MrEthical07/shopauth"

// Def names one engine metric for export.
type Def struct {
	ID   shopauth.MetricID
	Name string
	Help string
}

// Counters lists every exported counter in output order.
var Counters = []Def{
	{shopauth.MetricLoginSuccess, "shopauth_login_success_total", "Logins that ended with a full session."},
	{shopauth.MetricLoginPartial, "shopauth_login_partial_total", "Logins that stopped to ask for a second factor."},
	{shopauth.MetricLoginFailure, "shopauth_login_failure_total", "Logins rejected at the primary credential."},
	{shopauth.MetricMFASuccess, "shopauth_mfa_success_total", "Accepted second factor codes."},
	{shopauth.MetricMFAFailure, "shopauth_mfa_failure_total", "Rejected second factor codes."},
	{shopauth.MetricBruteforceLockout, "shopauth_bruteforce_lockout_total", "Attempts denied by the bruteforce guard."},
	{shopauth.MetricRegistrationBegin, "shopauth_registration_begin_total", "Signups started."},
	{shopauth.MetricRegistrationCommit, "shopauth_registration_commit_total", "Signups written to the user directory."},
	{shopauth.MetricRegistrationRollback, "shopauth_registration_rollback_total", "Signups whose user was removed again after a failed commit."},
	{shopauth.MetricLogout, "shopauth_logout_total", "Explicit logouts."},
	{shopauth.MetricSessionCreated, "shopauth_session_created_total", "Session records created, all kinds."},
	{shopauth.MetricSessionDeleted, "shopauth_session_deleted_total", "Session records deleted by the engine."},
}

// Histograms lists every exported latency histogram.
var Histograms = []Def{
	{shopauth.MetricAuthenticateLatency, "shopauth_authenticate_latency_seconds", "Primary authentication latency."},
}

// AuditDropped is the counter for audit events lost to backpressure.
var AuditDropped = Def{Name: "shopauth_audit_dropped_total", Help: "Audit events dropped because the dispatcher buffer was full."}

// BucketCount is the number of latency buckets, overflow included.
const BucketCount = 8

// Bounds are the Prometheus le labels of the latency buckets.
var Bounds = [BucketCount]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// BoundSuffixes are the same bounds spelled for instrument names.
var BoundSuffixes = [BucketCount]string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// Cumulative turns per-bucket counts into running totals. Missing trailing
// buckets count as zero.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
