package leave

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/warp/leave-engine/leave")

type metrics struct {
	transitions *prometheus.CounterVec
	refused     *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leave",
			Name:      "transitions_total",
			Help:      "Committed leave transitions by audit action.",
		}, []string{"action"}),
		refused: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leave",
			Name:      "refused_total",
			Help:      "Operations refused by a guard, by reason.",
		}, []string{"operation", "reason"}),
	}
})

func refusalReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrVolunteerLimitExceeded):
		return "volunteer_limit"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotPending):
		return "not_pending"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case IsValidation(err):
		return "validation"
	default:
		return "error"
	}
}

func startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "leave."+op, trace.WithAttributes(attrs...))
}

// finish ends the span and counts the outcome. err is returned unchanged.
func finish(span trace.Span, op string, action Action, err error) error {
	defer span.End()
	m := metricsSingleton()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.refused.WithLabelValues(op, refusalReason(err)).Inc()
		return err
	}
	if action != "" {
		m.transitions.WithLabelValues(string(action)).Inc()
	}
	return nil
}
