package index

// Severity classifies an anomaly notification.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// String returns a lowercase label for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Sink receives one-way anomaly notifications from the indexer for
// entries that were skipped rather than failing the build. It is a
// fire-and-forget side channel, not part of the success/failure
// contract.
type Sink interface {
	Notify(sev Severity, msg string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(sev Severity, msg string)

// Notify calls f.
func (f SinkFunc) Notify(sev Severity, msg string) {
	f(sev, msg)
}

// NopSink discards all notifications.
var NopSink Sink = SinkFunc(func(Severity, string) {})
