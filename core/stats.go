package core

// OverrunStats accumulates gate outcomes so a loop can detect systemic overload
type OverrunStats struct {
	Cycles      uint32 // Gate calls observed, free passes included
	Overruns    uint32 // Gate calls that reported an overrun
	TotalExcess uint64 // Sum of overrun excess in microseconds
	MaxExcess   uint64 // Worst single overrun in microseconds
}

// Record folds the result of one Gate* call into the stats.
// Errors that are not overruns are counted as cycles only.
func (s *OverrunStats) Record(err error) {
	s.Cycles++
	oe, ok := AsOverrun(err)
	if !ok {
		return
	}
	s.RecordExcess(oe.Excess())
}

// RecordExcess counts an overrun of excess microseconds without a cycle.
// Used by the host monitor where cycles come from the report stream.
func (s *OverrunStats) RecordExcess(excess uint64) {
	s.Overruns++
	s.TotalExcess += excess
	if excess > s.MaxExcess {
		s.MaxExcess = excess
	}
}

// MeanExcess is the average overrun excess in microseconds
func (s *OverrunStats) MeanExcess() uint64 {
	if s.Overruns == 0 {
		return 0
	}
	return s.TotalExcess / uint64(s.Overruns)
}

// OverrunPermille is overruns per thousand cycles
func (s *OverrunStats) OverrunPermille() uint32 {
	if s.Cycles == 0 {
		return 0
	}
	return uint32(uint64(s.Overruns) * 1000 / uint64(s.Cycles))
}

// Reset zeroes all counters
func (s *OverrunStats) Reset() {
	*s = OverrunStats{}
}

// Summary renders the stats on one line for debug output
func (s *OverrunStats) Summary() string {
	return "cycles=" + utoa64(uint64(s.Cycles)) +
		" overruns=" + utoa64(uint64(s.Overruns)) +
		" max=" + FormatMicros(s.MaxExcess) +
		" mean=" + FormatMicros(s.MeanExcess())
}
