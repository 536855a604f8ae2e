// Package metrics records build observations.
//
// Components receive a Recorder and default to NoopRecorder, so no call site
// needs a nil check. The dev server swaps in a PrometheusRecorder and exposes
// its registry through HTTPHandler.
package metrics
