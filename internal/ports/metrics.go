package ports

// Metrics receives usecase outcomes. Adapters must be safe for concurrent
// use.
type Metrics interface {
	CaptureOutcome(outcome string)
	ExportOutcome(outcome string, rows int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) CaptureOutcome(string)     {}
func (NopMetrics) ExportOutcome(string, int) {}
