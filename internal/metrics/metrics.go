package metrics

import "expvar"

var (
	AccessRequests     = expvar.NewInt("access_requests")
	AccessFailures     = expvar.NewInt("access_failures")
	HistoryRefreshes   = expvar.NewInt("history_refreshes")
	HistoryFailures    = expvar.NewInt("history_failures")
	Submissions        = expvar.NewInt("submissions")
	SubmissionFailures = expvar.NewInt("submission_failures")
	SubmissionRejects  = expvar.NewInt("submission_inflight_rejects")
)
