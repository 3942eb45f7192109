package metrics

import "time"

// PipelineMetrics observes open/create traffic through a vfs pipeline.
//
// Labels are plain strings so that this package stays independent of the
// vfs types. A nil PipelineMetrics is never passed to layers; callers use
// NewNoopPipelineMetrics instead.
type PipelineMetrics interface {
	// RecordOpen records a completed open with its outcome. errorCode is
	// empty on success.
	RecordOpen(share string, duration time.Duration, errorCode string)

	// RecordDecision records a terminal decision taken by a layer
	// (e.g. layer "worm", decision "static_deny").
	RecordDecision(layer, share, decision string)

	// RecordConnect and RecordDisconnect track active connections per share.
	RecordConnect(share string)
	RecordDisconnect(share string)
}

type noopPipelineMetrics struct{}

// NewNoopPipelineMetrics returns a PipelineMetrics that discards everything.
func NewNoopPipelineMetrics() PipelineMetrics {
	return noopPipelineMetrics{}
}

func (noopPipelineMetrics) RecordOpen(string, time.Duration, string) {}
func (noopPipelineMetrics) RecordDecision(string, string, string)    {}
func (noopPipelineMetrics) RecordConnect(string)                     {}
func (noopPipelineMetrics) RecordDisconnect(string)                  {}
