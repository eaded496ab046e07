// Package metrics provides the observability hooks for assetbuilder runs.
//
// Components receive a Recorder through their options and default to NoopRecorder,
// so metrics stay optional and nil checks never leak into task code:
//
//	runner := sequencer.NewRunner(sequencer.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The dev server exposes the registry through HTTPHandler on /metrics.
package metrics
