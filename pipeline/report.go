package pipeline

import (
	"fmt"
	"time"

	"github.com/relloyd/obspipe/metrics"
)

const (
	StageAuthenticate = "authenticate"
	StageSummary      = "fetch_summary"
	StageBatches      = "batches"
)

// PipelineError is returned when a run stops early, or when batches fail and the run is configured to fail on them.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at stage %v: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// BatchReport is the outcome of one batch of sites.
type BatchReport struct {
	ID         string         `json:"id"`
	Index      int            `json:"index"`
	SiteIDs    []int64        `json:"siteIds"`
	Rows       map[string]int `json:"rows,omitempty"`
	FetchError string         `json:"fetchError,omitempty"`
	LoadError  string         `json:"loadError,omitempty"`
	Status     string         `json:"status"`
	Duration   time.Duration  `json:"durationNanos"`
}

// RunReport summarises a pipeline run.
type RunReport struct {
	RunID         string        `json:"runId"`
	Started       time.Time     `json:"started"`
	Finished      time.Time     `json:"finished"`
	Status        string        `json:"status"`
	Error         string        `json:"error,omitempty"`
	SummaryRows   int           `json:"summaryRows"`
	SummaryError  string        `json:"summaryError,omitempty"`
	EligibleSites int           `json:"eligibleSites"`
	Window        DateWindow    `json:"window"`
	Batches       []BatchReport `json:"batches"`
}

// FailedBatches returns the number of batches that did not fully load.
func (r *RunReport) FailedBatches() int {
	n := 0
	for _, b := range r.Batches {
		if b.Status == metrics.StatusFailure {
			n++
		}
	}
	return n
}

// RowsByTable totals the rows appended per detail table across batches.
func (r *RunReport) RowsByTable() map[string]int {
	retval := make(map[string]int)
	for _, b := range r.Batches {
		for k, v := range b.Rows {
			retval[k] += v
		}
	}
	return retval
}
