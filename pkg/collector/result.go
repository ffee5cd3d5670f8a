package collector

import (
	"fmt"
	"time"
)

// Status is the terminal state of a collection run
type Status string

const (
	// StatusOK means every planned sub-window committed
	StatusOK Status = "ok"
	// StatusNoNewData means the watermark already covers the last complete period
	StatusNoNewData Status = "no-new-data"
	// StatusPartialFailure means at least one sub-window committed while
	// others failed or were abandoned by the run deadline
	StatusPartialFailure Status = "partial-failure"
	// StatusFailed means nothing was committed
	StatusFailed Status = "failed"
)

// Window is an inclusive fetch range handed to a source adapter
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the inclusive length of the window in days
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// WindowFailure records a sub-window whose attempts were exhausted
type WindowFailure struct {
	Window Window
	Err    error
}

// CollectionResult summarizes one collection run
type CollectionResult struct {
	Series         string
	Status         Status
	RecordsFetched int
	RecordsWritten int
	RecordsDropped int
	Failures       []WindowFailure
	NotAttempted   []Window
	Elapsed        time.Duration
	Err            error
}

// Committed reports whether any records reached the sink
func (r *CollectionResult) Committed() bool {
	return r.RecordsWritten > 0
}
