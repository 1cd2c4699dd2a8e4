package metrics

// FetchTiming captures the cost of one coordinated backend fan-out.
type FetchTiming struct {
	DurationMs int64 `json:"durationMs"`
	Calls      int   `json:"calls"`
	Failures   int   `json:"failures,omitempty"`
}

// IsZero reports whether timing data is absent.
func (t FetchTiming) IsZero() bool {
	return t.DurationMs == 0 && t.Calls == 0 && t.Failures == 0
}
