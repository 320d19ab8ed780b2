package syncctl

// Recorder receives observability events from the controller. The metrics
// package provides a Prometheus-backed implementation; tests and callers
// that don't care about metrics use noopRecorder (the default).
type Recorder interface {
	ObserveDecision(candidates, syncNodes int)
	ObserveParseFailure()
	ObserveReadinessGateCrossed(member string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveDecision(int, int)          {}
func (noopRecorder) ObserveParseFailure()              {}
func (noopRecorder) ObserveReadinessGateCrossed(string) {}
