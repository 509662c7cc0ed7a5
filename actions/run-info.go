package actions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relloyd/obspipe/metrics"
	"github.com/relloyd/obspipe/pipeline"
)

const (
	RunStatusRunning = "running"
	RunStatusSuccess = metrics.StatusSuccess
	RunStatusFailure = metrics.StatusFailure
)

// RunInfo is what the web server knows about a run it launched.
type RunInfo struct {
	RunID    string              `json:"runId"`
	Status   string              `json:"status"`
	Started  time.Time           `json:"started"`
	Finished time.Time           `json:"finished,omitempty"`
	Error    string              `json:"error,omitempty"`
	Report   *pipeline.RunReport `json:"report,omitempty"`
	cancel   context.CancelFunc
}

func (i RunInfo) IsFinished() bool {
	return i.Status != RunStatusRunning
}

// SafeMapRunInfo holds RunInfo by run id.
type SafeMapRunInfo struct {
	sync.RWMutex
	Internal map[string]RunInfo
}

func NewSafeMapRunInfo() *SafeMapRunInfo {
	return &SafeMapRunInfo{Internal: make(map[string]RunInfo)}
}

func (t *SafeMapRunInfo) Load(key string) (ri RunInfo, ok bool) {
	t.RLock()
	ri, ok = t.Internal[key]
	t.RUnlock()
	return
}

// StoreIfIdle saves value unless another run is still in progress, in which case it returns false.
func (t *SafeMapRunInfo) StoreIfIdle(key string, value RunInfo) bool {
	t.Lock()
	defer t.Unlock()
	for _, v := range t.Internal {
		if !v.IsFinished() {
			return false
		}
	}
	t.Internal[key] = value
	return true
}

// Finish records the outcome of run key.
func (t *SafeMapRunInfo) Finish(key string, report *pipeline.RunReport, err error) {
	t.Lock()
	defer t.Unlock()
	ri := t.Internal[key]
	ri.Finished = time.Now()
	ri.Report = report
	ri.Status = RunStatusSuccess
	if err != nil {
		ri.Status = RunStatusFailure
		ri.Error = err.Error()
	}
	ri.cancel = nil
	t.Internal[key] = ri
}

// Cancel stops run key if it is still running. It returns false if the run is unknown or finished.
func (t *SafeMapRunInfo) Cancel(key string) bool {
	t.RLock()
	defer t.RUnlock()
	ri, ok := t.Internal[key]
	if !ok || ri.IsFinished() || ri.cancel == nil {
		return false
	}
	ri.cancel()
	return true
}

// CancelAll stops every run in progress.
func (t *SafeMapRunInfo) CancelAll() {
	t.RLock()
	defer t.RUnlock()
	for _, ri := range t.Internal {
		if !ri.IsFinished() && ri.cancel != nil {
			ri.cancel()
		}
	}
}

// List returns all runs, oldest first.
func (t *SafeMapRunInfo) List() []RunInfo {
	t.RLock()
	retval := make([]RunInfo, 0, len(t.Internal))
	for _, v := range t.Internal {
		v.Report = nil
		retval = append(retval, v)
	}
	t.RUnlock()
	sort.Slice(retval, func(i, j int) bool {
		return retval[i].Started.Before(retval[j].Started)
	})
	return retval
}
