package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealnote_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealnote_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Event intake metrics
	SlackEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealnote_slack_events_received_total",
			Help: "Total number of Slack events received",
		},
		[]string{"event_type"},
	)

	// Pipeline metrics
	ReactionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealnote_reactions_processed_total",
			Help: "Total number of reaction events run through the pipeline",
		},
		[]string{"outcome"},
	)

	DedupeHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dealnote_dedupe_hits_total",
			Help: "Total number of reaction events suppressed by the dedupe store",
		},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dealnote_pipeline_duration_seconds",
			Help:    "Duration of reaction pipeline runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CRM metrics
	CRMNotesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealnote_crm_notes_created_total",
			Help: "Total number of CRM note submissions",
		},
		[]string{"status"},
	)

	CRMFilesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealnote_crm_files_uploaded_total",
			Help: "Total number of CRM file uploads",
		},
		[]string{"status"},
	)

	// Attachment relay metrics
	AttachmentsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealnote_attachments_relayed_total",
			Help: "Total number of attachments relayed",
		},
		[]string{"target", "status"},
	)

	// Invite flow metrics
	ChannelInvites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealnote_channel_invites_total",
			Help: "Total number of channel invites issued on bot join",
		},
		[]string{"status"},
	)
)
