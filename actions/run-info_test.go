package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relloyd/obspipe/pipeline"
)

func TestSafeMapRunInfo(t *testing.T) {
	m := NewSafeMapRunInfo()
	ctx1, cancel1 := context.WithCancel(context.Background())
	now := time.Now()
	if !m.StoreIfIdle("a", RunInfo{RunID: "a", Status: RunStatusRunning, Started: now, cancel: cancel1}) {
		t.Fatal("expected the first run to be stored")
	}
	if m.StoreIfIdle("b", RunInfo{RunID: "b", Status: RunStatusRunning, Started: now}) {
		t.Fatal("expected a second run to be refused while the first is running")
	}
	if !m.Cancel("a") {
		t.Fatal("expected run a to be cancelled")
	}
	if ctx1.Err() == nil {
		t.Fatal("expected the run context to be cancelled")
	}
	m.Finish("a", &pipeline.RunReport{RunID: "a"}, errors.New("cancelled"))
	ri, ok := m.Load("a")
	if !ok || ri.Status != RunStatusFailure || ri.Error != "cancelled" || ri.Finished.IsZero() {
		t.Fatalf("unexpected run info %+v", ri)
	}
	if m.Cancel("a") {
		t.Fatal("expected a finished run not to be cancelled")
	}
	if m.Cancel("missing") {
		t.Fatal("expected an unknown run not to be cancelled")
	}
	ctx2, cancel2 := context.WithCancel(context.Background())
	if !m.StoreIfIdle("b", RunInfo{RunID: "b", Status: RunStatusRunning, Started: now.Add(time.Second), cancel: cancel2}) {
		t.Fatal("expected run b to be stored once a is finished")
	}
	m.CancelAll()
	if ctx2.Err() == nil {
		t.Fatal("expected CancelAll to cancel run b")
	}
	m.Finish("b", &pipeline.RunReport{RunID: "b"}, nil)
	list := m.List()
	if len(list) != 2 || list[0].RunID != "a" || list[1].RunID != "b" {
		t.Fatalf("expected runs oldest first; got %+v", list)
	}
	if list[1].Status != RunStatusSuccess || list[1].Report != nil {
		t.Fatalf("expected a successful run without its report in the list; got %+v", list[1])
	}
}
