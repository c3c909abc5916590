package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goPasswordless "github.com/MrEthical07/goPasswordless"
	"github.com/MrEthical07/goPasswordless/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("otel: nil meter")
	ErrNilSource = errors.New("otel: nil metrics source")
)

// Source is read once per collection cycle. *goPasswordless.Engine
// implements it.
type Source interface {
	MetricsSnapshot() goPasswordless.MetricsSnapshot
	AuditDropped() uint64
	AuditDelivered() uint64
}

var (
	outcomeDelivered = metric.WithAttributeSet(attribute.NewSet(attribute.String("outcome", "delivered")))
	outcomeDropped   = metric.WithAttributeSet(attribute.NewSet(attribute.String("outcome", "dropped")))

	// One "le" attribute per cumulative bucket, the last one +Inf.
	bucketBounds = func() []metric.ObserveOption {
		out := make([]metric.ObserveOption, 0, len(internaldefs.HistogramUpperBounds)+1)
		for _, le := range internaldefs.HistogramUpperBounds {
			out = append(out, metric.WithAttributeSet(attribute.NewSet(
				attribute.String("le", strconv.FormatFloat(le, 'g', -1, 64)),
			)))
		}
		return append(out, metric.WithAttributeSet(attribute.NewSet(attribute.String("le", "+Inf"))))
	}()
)

// Exporter publishes engine counters as observable counters and each latency
// histogram as a gauge of cumulative bucket counts keyed by "le".
type Exporter struct {
	source       Source
	registration metric.Registration

	counters   map[goPasswordless.MetricID]metric.Int64ObservableCounter
	histograms map[goPasswordless.MetricID]metric.Int64ObservableGauge
	audit      metric.Int64ObservableCounter
}

// New registers the instruments on meter. Close unregisters them; the meter
// provider stays owned by the caller.
func New(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:     source,
		counters:   make(map[goPasswordless.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		histograms: make(map[goPasswordless.MetricID]metric.Int64ObservableGauge, len(internaldefs.HistogramDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		g, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		e.histograms[def.ID] = g
		observables = append(observables, g)
	}

	audit, err := meter.Int64ObservableCounter(internaldefs.AuditEventsName, metric.WithDescription(internaldefs.AuditEventsHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", internaldefs.AuditEventsName, err)
	}
	e.audit = audit
	observables = append(observables, audit)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snapshot.Counters[id]))
	}
	for id, g := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[id]))
		for i, bound := range bucketBounds {
			o.ObserveInt64(g, int64(cumulative[i]), bound)
		}
	}

	o.ObserveInt64(e.audit, int64(e.source.AuditDelivered()), outcomeDelivered)
	o.ObserveInt64(e.audit, int64(e.source.AuditDropped()), outcomeDropped)
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
