package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/pipeline"
)

const (
	urlContext4Run = "/run"
)

type WebServerConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	Scheme           string `errorTxt:"scheme" mandatory:"no"`
	Addr             net.IP `errorTxt:"address" mandatory:"no"`
	Port             int    `errorTxt:"port" mandatory:"no"`
	PipelineFile     string
	Connections      ConnectionLoader
	Credentials      ConfigGetter
	StackDumpOnPanic bool
}

// Runner runs the pipeline once. It is implemented by PipelineRunner.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (*pipeline.RunReport, error)
}

// RunWebServer serves HTTP triggers for pipeline runs until it is stopped via /stop or SIGINT/SIGTERM.
func RunWebServer(web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	pc, err := LoadPipelineConfig(web.PipelineFile, web.Credentials)
	if err != nil {
		return err
	}
	log := logger.NewLogger(constants.ServiceName, logLevel(web.LogLevel, pc), web.StackDumpOnPanic)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, err := NewPipelineRunner(ctx, log, pc, web.Connections)
	if err != nil {
		return err
	}
	defer r.Close()
	srv, chanStopServer, allRunInfo := runServer(ctx, log, web, r)
	return waitForServer(log, srv, chanStopServer, allRunInfo)
}

// NewRouter returns the HTTP routes served for runner.
// Runs are started using ctx so that cancelling it stops them.
func NewRouter(ctx context.Context, log logger.Logger, runner Runner, allRunInfo *SafeMapRunInfo, chanStopServer chan string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stop", GetHandlerStopServer(log, chanStopServer)).Methods(http.MethodPost)
	r.Path("/health").HandlerFunc(GetHandlerHealth(log))
	r.Path("/metrics").Handler(promhttp.Handler())
	r.Path("/runs").HandlerFunc(GetHandlerRunList(log, allRunInfo)).Methods(http.MethodGet)
	r.Path("/runs/{runId}").HandlerFunc(GetHandlerRunStatus(log, allRunInfo)).Methods(http.MethodGet)
	r.Path("/runs/{runId}/stop").HandlerFunc(GetHandlerRunStop(log, allRunInfo)).Methods(http.MethodPost)
	r.Path(urlContext4Run).HandlerFunc(GetHandlerRunLaunch(ctx, log, runner, allRunInfo)).Methods(http.MethodPost)
	return r
}

func runServer(ctx context.Context, log logger.Logger, web *WebServerConfig, runner Runner) (*http.Server, chan string, *SafeMapRunInfo) {
	chanStopServer := make(chan string, 1)
	allRunInfo := NewSafeMapRunInfo()
	srv := &http.Server{
		Addr:         fmt.Sprintf("%v:%v", web.Addr, web.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      NewRouter(ctx, log, runner, allRunInfo, chanStopServer),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Panic(err)
			}
		}
	}()
	log.Info(fmt.Sprintf("Listening on %v://%v:%v", strings.ToLower(web.Scheme), web.Addr, web.Port))
	return srv, chanStopServer, allRunInfo
}

// waitForRuns is how long shutdown waits for cancelled runs to record their outcome.
const waitForRuns = 5 * time.Second

func waitForServer(log logger.Logger, srv *http.Server, chanStopServer chan string, allRunInfo *SafeMapRunInfo) error {
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt, syscall.SIGTERM)
	select {
	case <-chanStopServer:
	case <-chanOS:
	}
	log.Info("Shutting down web server...")
	allRunInfo.CancelAll()
	deadline := time.Now().Add(waitForRuns)
	for time.Now().Before(deadline) && runsInProgress(allRunInfo) {
		time.Sleep(100 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runsInProgress(allRunInfo *SafeMapRunInfo) bool {
	for _, ri := range allRunInfo.List() {
		if !ri.IsFinished() {
			return true
		}
	}
	return false
}
