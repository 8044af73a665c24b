// Package prometheus provides Prometheus collectors for authcore metrics.
//
// [NewPrometheusExporter] accepts an [authcore.Engine] and exposes an [http.Handler]
// that renders all authcore counters in Prometheus text exposition format.
// Counter names are prefixed authcore_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
