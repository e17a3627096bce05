package core

import (
	"time"
)

// Outcome is the terminal state of one file within one cycle.
type Outcome int

const (
	// OutcomeSkipped means the file was listed but not attempted because the cycle aborted earlier.
	OutcomeSkipped Outcome = iota
	// OutcomeProcessed means the report was persisted and the file moved to the processed directory.
	OutcomeProcessed
	// OutcomeRejected means the device was unknown and the file moved to the error directory.
	OutcomeRejected
	// OutcomeStuckPending means the file could not be parsed even after retries; it is left in place.
	OutcomeStuckPending
	// OutcomeFailed means a transfer, persistence or archive failure survived retries; the file is left in place.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeStuckPending:
		return "stuck_pending"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Archived reports whether the file left the source directory.
func (o Outcome) Archived() bool {
	return o == OutcomeProcessed || o == OutcomeRejected
}

// CycleState is a state of the pipeline orchestrator.
type CycleState int

const (
	StateIdle CycleState = iota
	StateConnecting
	StateListing
	StateProcessing
	StateSucceeded
	StateAborted
)

func (s CycleState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateListing:
		return "listing"
	case StateProcessing:
		return "processing"
	case StateSucceeded:
		return "succeeded"
	case StateAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// FileResult is the result of handling one listed file.
type FileResult struct {
	Entry    Entry
	Outcome  Outcome
	Digest   string
	Attempts int
	Reason   string
	Err      error
}

// CycleResult summarises one cycle.
type CycleResult struct {
	ID       string
	Pipeline string
	State    CycleState
	Files    []FileResult
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Count returns the number of files that ended with the given outcome.
func (c *CycleResult) Count(o Outcome) int {
	n := 0
	for _, f := range c.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}
