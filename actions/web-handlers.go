package actions

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/pipeline"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		return nil, fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseRunList struct {
	Status WebServerResponse `json:"status"`
	Runs   []RunInfo         `json:"runs"`
}

type ResponseRunStatus struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message,omitempty"`
	Run     *RunInfo          `json:"run,omitempty"`
}

type ResponseRunLaunch struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	RunID   string            `json:"runId,omitempty"`
	Report  interface{}       `json:"report,omitempty"`
}

// RunRequest is the optional JSON body of POST /run.
// Wait blocks the request until the run finishes and returns its report.
type RunRequest struct {
	SummaryOnly bool `json:"summaryOnly"`
	Wait        bool `json:"wait"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // already stopping.
		}
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay})
	}
}

// GetHandlerRunLaunch starts a run in the background and returns its id.
// Only one run may be in progress at a time; further requests get 409 Conflict.
func GetHandlerRunLaunch(ctx context.Context, log logger.Logger, runner Runner, allRunInfo *SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		req := RunRequest{}
		b, _ := ioutil.ReadAll(r.Body)
		if len(b) > 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				log.Error(err)
				respond(log, w, http.StatusBadRequest,
					ResponseRunLaunch{Status: Error, Message: fmt.Sprintf("error unmarshalling JSON: %v", err)})
				return
			}
		}
		runCtx, cancel := context.WithCancel(ctx)
		id := pipeline.NewRunID()
		if !allRunInfo.StoreIfIdle(id, RunInfo{RunID: id, Status: RunStatusRunning, Started: time.Now(), cancel: cancel}) {
			cancel()
			respond(log, w, http.StatusConflict, ResponseRunLaunch{Status: Error, Message: "a run is already in progress"})
			return
		}
		log.Info("Launching run ", id)
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer cancel()
			report, err := runner.Run(runCtx, RunOptions{RunID: id, SummaryOnly: req.SummaryOnly})
			allRunInfo.Finish(id, report, err)
		}()
		if !req.Wait {
			respond(log, w, http.StatusAccepted, ResponseRunLaunch{Status: Okay, Message: "run launched", RunID: id})
			return
		}
		<-done
		ri, _ := allRunInfo.Load(id)
		if ri.Status != RunStatusSuccess {
			respond(log, w, http.StatusInternalServerError, ResponseRunLaunch{Status: Error, Message: ri.Error, RunID: id, Report: ri.Report})
			return
		}
		respond(log, w, http.StatusOK, ResponseRunLaunch{Status: Okay, Message: "run complete", RunID: id, Report: ri.Report})
	}
}

func GetHandlerRunStop(log logger.Logger, allRunInfo *SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := allRunInfo.Load(id)
		if !ok {
			log.Info("HTTP request to stop run ", id, " that doesn't exist.")
			respond(log, w, http.StatusNotFound, ResponseRunStatus{Status: Error, Message: "run does not exist"})
			return
		}
		if !allRunInfo.Cancel(id) {
			respond(log, w, http.StatusOK, ResponseRunStatus{Status: Error, Message: "run already ended", Run: &ri})
			return
		}
		log.Info("Stopping run ", id)
		respond(log, w, http.StatusOK, ResponseRunStatus{Status: Okay, Message: "stopping", Run: &ri})
	}
}

func GetHandlerRunList(log logger.Logger, allRunInfo *SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(log, w, http.StatusOK, ResponseRunList{Status: Okay, Runs: allRunInfo.List()})
	}
}

func GetHandlerRunStatus(log logger.Logger, allRunInfo *SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := allRunInfo.Load(id)
		if !ok {
			log.Info("HTTP request for status of run ", id, " that doesn't exist.")
			respond(log, w, http.StatusNotFound, ResponseRunStatus{Status: Error, Message: fmt.Sprintf("run %v does not exist", id)})
			return
		}
		respond(log, w, http.StatusOK, ResponseRunStatus{Status: Okay, Run: &ri})
	}
}

// respond writes code and i as indented JSON to w.
func respond(log logger.Logger, w http.ResponseWriter, code int, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(j); err != nil {
		log.Error(err)
	}
}
