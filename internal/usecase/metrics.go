package usecase

import (
	"github.com/prometheus/client_golang/prometheus"

	"safelink-service/internal/domain"
)

func init() {
	prometheus.MustRegister(linksSignedMetric, linksVerifiedMetric)
}

var linksSignedMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "safelink",
	Subsystem: "links",
	Name:      "signed_total",
	Help:      "Total signed links by result",
}, []string{"result"})

var linksVerifiedMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "safelink",
	Subsystem: "links",
	Name:      "verified_total",
	Help:      "Total link verifications by result",
}, []string{"result"})

func observe(op domain.LinkOperation, result domain.LinkResult) {
	switch op {
	case domain.LinkOperationSign:
		linksSignedMetric.WithLabelValues(string(result)).Inc()
	case domain.LinkOperationVerify:
		linksVerifiedMetric.WithLabelValues(string(result)).Inc()
	}
}
