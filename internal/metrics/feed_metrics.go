package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FeedMetrics holds the market-feed-specific instruments recorded by the
// manager and slot packages: live subscription volume by mode and
// per-slot reconnect counts. It is safe to use as a nil receiver, so
// callers that never wire a MetricProvider can still hold one without
// guarding every call site.
type FeedMetrics struct {
	subscribed metric.Int64UpDownCounter
	reconnects metric.Int64Counter
}

// NewFeedMetrics registers the market-feed instruments against the
// global OTel meter provider under meterName. Instrument creation only
// fails if the meter provider rejects the name, which the noop provider
// installed before NewMetricProvider runs never does.
func NewFeedMetrics(meterName string) *FeedMetrics {
	meter := otel.Meter(meterName)

	subscribed, _ := meter.Int64UpDownCounter(
		"marketfeed_subscribed_instruments",
		metric.WithDescription("instruments currently subscribed across the connection pool, by feed mode"),
	)
	reconnects, _ := meter.Int64Counter(
		"marketfeed_slot_reconnects_total",
		metric.WithDescription("successful WebSocket reconnects, by connection slot"),
	)

	return &FeedMetrics{subscribed: subscribed, reconnects: reconnects}
}

// RecordSubscribe adjusts the subscribed-instrument counter by delta
// (positive from Subscribe, negative from Unsubscribe) for one feed mode.
func (f *FeedMetrics) RecordSubscribe(ctx context.Context, mode string, delta int) {
	if f == nil || f.subscribed == nil || delta == 0 {
		return
	}
	f.subscribed.Add(ctx, int64(delta), metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordReconnect increments the reconnect counter for one slot.
func (f *FeedMetrics) RecordReconnect(ctx context.Context, slotID int) {
	if f == nil || f.reconnects == nil {
		return
	}
	f.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.Int("slot", slotID)))
}
