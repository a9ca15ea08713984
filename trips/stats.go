package trips

import "log/slog"

// StageStats counts the outcome of one pipeline stage. Succeeded and Skipped
// partition the rows the stage saw; Warned counts rows that left the stage
// with a new warning.
type StageStats struct {
	Stage     string
	Succeeded int
	Skipped   int
	Warned    int
}

// Total returns the number of rows the stage processed.
func (s StageStats) Total() int { return s.Succeeded + s.Skipped }

// LogValue implements slog.LogValuer.
func (s StageStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("stage", s.Stage),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("skipped", s.Skipped),
		slog.Int("warned", s.Warned),
	)
}
