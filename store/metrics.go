package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mDbOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fluxnode",
		Subsystem: "registry_store",
		Name:      "db_open",
		Help:      "Number of currently open badger databases backing the registry store.",
	})

	mTxnOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fluxnode",
		Subsystem: "registry_store",
		Name:      "txn_open",
		Help:      "Number of in-flight write transactions against the registry store.",
	})

	mCommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fluxnode",
		Subsystem: "registry_store",
		Name:      "commit_duration_seconds",
		Help:      "Time spent committing a single batch write to the registry store.",
		Buckets:   prometheus.DefBuckets,
	})
)

type commitTimer struct {
	start time.Time
}

func newCommitTimer() *commitTimer {
	return &commitTimer{start: time.Now()}
}

func (t *commitTimer) observe() {
	mCommitDuration.Observe(time.Since(t.start).Seconds())
}
