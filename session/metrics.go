package session

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/swfrench/ewt"
	"golang.org/x/exp/slog"
)

// Rejection reasons, as reported in the "reason" label.
const (
	ReasonMalformed      = "malformed"
	ReasonUnsupported    = "unsupported"
	ReasonAuthentication = "authentication"
	ReasonExpired        = "expired"
	ReasonRevoked        = "revoked"
	ReasonInvalid        = "invalid"
	ReasonUnavailable    = "unavailable"
)

func newRejectionCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ewt",
		Subsystem: "session",
		Name:      "rejections_total",
		Help:      "Session cookies rejected by the Manage middleware, by reason.",
	}, []string{"reason"})
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		slog.Error("Failed to register session metrics", "error", err)
	}
	return c
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ewt.ErrMalformedToken):
		return ReasonMalformed
	case errors.Is(err, ewt.ErrUnsupportedAlgorithm):
		return ReasonUnsupported
	case errors.Is(err, ewt.ErrAuthenticationFailed):
		return ReasonAuthentication
	case errors.Is(err, errExpiredSession):
		return ReasonExpired
	case errors.Is(err, errRevokedSession):
		return ReasonRevoked
	case errors.Is(err, errInvalidSession):
		return ReasonInvalid
	default:
		return ReasonUnavailable
	}
}
