// Package telemetry provides setup for tracing and debug recording of the navigator.
package telemetry

import (
	"time"

	"go.viam.com/utils/perf"
)

// minReportingInterval is the shortest interval the development exporter accepts.
const minReportingInterval = time.Second

// SetupTelemetry sets up telemetry so spans and stats are reported every reportingInterval.
// Intervals shorter than a second are raised to one second.
func SetupTelemetry(reportingInterval time.Duration) (perf.Exporter, error) {
	exporter := perf.NewDevelopmentExporterWithOptions(perf.DevelopmentExporterOptions{
		ReportingInterval: clampReportingInterval(reportingInterval),
	})
	if err := exporter.Start(); err != nil {
		return nil, err
	}

	return exporter, nil
}

func clampReportingInterval(reportingInterval time.Duration) time.Duration {
	if reportingInterval < minReportingInterval {
		return minReportingInterval
	}
	return reportingInterval
}
