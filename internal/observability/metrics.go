package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application-level counters, exposed alongside the per-route metrics the
// Fiber Prometheus middleware records.
var (
	UsersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bibleblock_users_registered_total",
		Help: "Number of accounts created.",
	})

	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bibleblock_posts_created_total",
		Help: "Number of posts created.",
	})

	ResetMailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibleblock_reset_mails_total",
		Help: "Password reset mails attempted, by delivery outcome.",
	}, []string{"outcome"})
)
