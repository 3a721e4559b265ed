package vm

import "time"

// Statistics tracks coarse execution counters, grounded on the teacher's
// PerformanceStatistics but trimmed to what spec.md's Non-goals leave room
// for: spec.md explicitly excludes exact cycle counting, so this reports
// throughput and instruction-class counts, not timing-accurate cycles.
type Statistics struct {
	InstructionsExecuted uint64
	LoadsExecuted        uint64
	StoresExecuted       uint64
	BranchesTaken        uint64
	BranchesNotTaken     uint64
	ECallsExecuted       uint64
	started              time.Time
	ended                time.Time
}

// NewStatistics returns a zeroed Statistics with its start time recorded.
func NewStatistics() *Statistics {
	return &Statistics{started: time.Now()}
}

// RecordInstruction should be called once per completed Step with the
// instruction that was executed.
func (s *Statistics) RecordInstruction(in *Instruction) {
	s.InstructionsExecuted++
	switch in.Class {
	case ClassILoad:
		s.LoadsExecuted++
	case ClassS:
		s.StoresExecuted++
	case ClassB:
		// Branch taken/not-taken is recorded by the caller (VM.Step), which
		// observes the PC delta; Statistics itself doesn't re-derive it.
	case ClassISystem:
		s.ECallsExecuted++
	}
}

// RecordBranch records whether a just-executed branch was taken.
func (s *Statistics) RecordBranch(taken bool) {
	if taken {
		s.BranchesTaken++
	} else {
		s.BranchesNotTaken++
	}
}

// Finish stops the clock. InstructionsPerSecond is meaningless before this
// is called.
func (s *Statistics) Finish() {
	s.ended = time.Now()
}

// InstructionsPerSecond reports approximate throughput between NewStatistics
// and Finish (or now, if Finish was never called).
func (s *Statistics) InstructionsPerSecond() float64 {
	end := s.ended
	if end.IsZero() {
		end = time.Now()
	}
	elapsed := end.Sub(s.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.InstructionsExecuted) / elapsed
}
