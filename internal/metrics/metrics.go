package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	WebhookDeliveries prometheus.Counter
	EventsProcessed   prometheus.Counter
	RepliesPosted     prometheus.Counter
	ReplyFailures     prometheus.Counter
	MailPolls         prometheus.Counter
	MailRepliesSent   prometheus.Counter
	MailSkips         prometheus.Counter
	ProcessingTime    prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		WebhookDeliveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "social_auto_reply_webhook_deliveries",
			Help: "Total number of webhook deliveries received",
		}),
		EventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "social_auto_reply_events_processed",
			Help: "Total number of change events run through the pipeline",
		}),
		RepliesPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "social_auto_reply_replies_posted",
			Help: "Total number of comment replies posted to the platform",
		}),
		ReplyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "social_auto_reply_reply_failures",
			Help: "Total number of failed reply attempts",
		}),
		MailPolls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "social_auto_reply_mail_polls",
			Help: "Total number of mailbox poll iterations",
		}),
		MailRepliesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "social_auto_reply_mail_replies_sent",
			Help: "Total number of email replies sent",
		}),
		MailSkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "social_auto_reply_mail_skips",
			Help: "Total number of poll iterations skipped as already handled",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "social_auto_reply_processing_duration_seconds",
			Help:    "Time spent processing webhook deliveries and poll iterations",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
