// Package otel bridges the engine's in-process counters to an OpenTelemetry
// meter as observable counters. The bridge pulls a snapshot on each
// collection cycle; the engine itself stays free of exporter dependencies.
package otel

import (
	"context"
	"errors"
	"fmt"

	goEnroll "github.com/MrEthical07/goEnroll"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type counterDef struct {
	id   goEnroll.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{goEnroll.MetricLoginSuccess, "goenroll_login_success_total", "Successful logins, including enrollment-required results."},
	{goEnroll.MetricLoginFailure, "goenroll_login_failure_total", "Rejected logins."},
	{goEnroll.MetricPasswordChangeSuccess, "goenroll_password_change_success_total", "Completed password rotations."},
	{goEnroll.MetricPasswordChangeFailure, "goenroll_password_change_failure_total", "Rejected password rotations."},
	{goEnroll.MetricTOTPEnrolled, "goenroll_totp_enrolled_total", "Confirmed TOTP enrollments."},
	{goEnroll.MetricTOTPFailure, "goenroll_totp_failure_total", "Rejected TOTP confirmations."},
	{goEnroll.MetricBiometricEnrolled, "goenroll_biometric_enrolled_total", "Registered biometric key references."},
	{goEnroll.MetricBiometricFailure, "goenroll_biometric_failure_total", "Rejected biometric registrations."},
	{goEnroll.MetricStoreConflict, "goenroll_store_conflict_total", "Optimistic write conflicts before retry."},
	{goEnroll.MetricStoreUnavailable, "goenroll_store_unavailable_total", "Credential store timeouts and transport failures."},
	{goEnroll.MetricHashUpgrade, "goenroll_hash_upgrade_total", "Transparent password-hash upgrades on login."},
}

type metricsSource interface {
	MetricsSnapshot() goEnroll.MetricsSnapshot
}

type observedCounter struct {
	id         goEnroll.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter registers one observable counter per engine metric and feeds them
// from snapshots. Unregister detaches the callback.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
}

// NewExporter registers the engine's counters on meter.
func NewExporter(meter metric.Meter, engine *goEnroll.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source, which lets
// tests observe without building a full engine.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs))
	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration

	return exporter, nil
}

// Unregister detaches the collection callback from the meter.
func (e *Exporter) Unregister() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
