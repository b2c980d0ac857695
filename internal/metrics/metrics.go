package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreels_uploads_total",
		Help: "Accepted uploads by category and where the recorded URL points (remote|fallback)",
	}, []string{"category", "target"})

	UploadRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreels_upload_rejects_total",
		Help: "Uploads rejected before staging",
	}, []string{"reason"})

	RemoteSubmitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyreels_remote_submit_seconds",
		Help:    "Time spent submitting staged files to the remote media store",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"category"})

	PasswordAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreels_password_attempts_total",
		Help: "Password checks by result",
	}, []string{"result"})

	LogRecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreels_log_records_dropped_total",
		Help: "Event records that never reached the external log",
	}, []string{"reason"})

	LatestReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyreels_latest_reads_total",
		Help: "Latest-record reads by source (projection|store|empty)",
	}, []string{"source"})

	StagePurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyreels_stage_purged_files_total",
		Help: "Staged files removed by the retention janitor",
	})
)
