package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("otel: nil meter")
	ErrNilSource = errors.New("otel: nil metrics source")
)

// MetricsSource is satisfied by *tokenauth.Engine.
type MetricsSource interface {
	MetricsSnapshot() tokenauth.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument from a snapshot taken for the current
// collection.
type observeFunc func(metric.Observer, tokenauth.MetricsSnapshot)

// Exporter keeps the engine's metrics registered on a meter until Close.
type Exporter struct {
	registration metric.Registration
}

var bucketOptions = func() (out [tokenauth.HistogramBucketCount]metric.ObserveOption) {
	for i := range out {
		out[i] = metric.WithAttributes(attribute.String("le", internaldefs.BucketLabel(i)))
	}
	return out
}()

// NewExporter registers observable instruments for every engine counter
// and latency histogram on meter. All of them are filled from a single
// snapshot of source per collection.
func NewExporter(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var (
		instruments []metric.Observable
		observers   []observeFunc
	)

	for _, def := range internaldefs.CounterDefs {
		counter, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		id := def.ID
		instruments = append(instruments, counter)
		observers = append(observers, func(o metric.Observer, snap tokenauth.MetricsSnapshot) {
			o.ObserveInt64(counter, int64(snap.Counters[id]))
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative samples at or below le."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableCounter(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		id := def.ID
		instruments = append(instruments, buckets, count)
		observers = append(observers, func(o metric.Observer, snap tokenauth.MetricsSnapshot) {
			cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
			for i, v := range cumulative {
				o.ObserveInt64(buckets, int64(v), bucketOptions[i])
			}
			o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
		})
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	instruments = append(instruments, dropped)
	observers = append(observers, func(o metric.Observer, _ tokenauth.MetricsSnapshot) {
		o.ObserveInt64(dropped, int64(source.AuditDropped()))
	})

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := source.MetricsSnapshot()
		for _, observe := range observers {
			observe(o, snap)
		}
		return nil
	}, instruments...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return &Exporter{registration: registration}, nil
}

// Close unregisters the callback. Instruments stay on the meter but stop
// reporting.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
