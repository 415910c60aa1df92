package models

import (
	"fmt"
	"sync/atomic"
)

// RunStats accumulates per-run artifact counters. Generation tasks run
// concurrently, so increments are atomic.
type RunStats struct {
	generated atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func (s *RunStats) AddGenerated() { s.generated.Add(1) }
func (s *RunStats) AddSkipped()   { s.skipped.Add(1) }
func (s *RunStats) AddFailed()    { s.failed.Add(1) }

func (s *RunStats) Generated() int64 { return s.generated.Load() }
func (s *RunStats) Skipped() int64   { return s.skipped.Load() }
func (s *RunStats) Failed() int64    { return s.failed.Load() }

// Summary is the end-of-run line printed by every tool.
func (s *RunStats) Summary() string {
	return fmt.Sprintf("generated=%d skipped=%d failed=%d", s.Generated(), s.Skipped(), s.Failed())
}
