package actions

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/relloyd/obspipe/api"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
)

type AuthCheckConfig struct {
	LogLevel         string
	StackDumpOnPanic bool
	PipelineFile     string
	Credentials      ConfigGetter
	Output           io.Writer
}

// RunAuthCheck authenticates with the configured API credentials and prints the session with the token hidden.
func RunAuthCheck(ctx context.Context, cfg *AuthCheckConfig) (api.Session, error) {
	if cfg == nil || cfg.Output == nil {
		return api.Session{}, errors.New("auth check requires a config with an output writer")
	}
	pc, err := LoadPipelineConfig(cfg.PipelineFile, cfg.Credentials)
	if err != nil {
		return api.Session{}, err
	}
	if err = helper.ValidateStruct(&pc.API); err != nil {
		return api.Session{}, err
	}
	log := logger.NewLogger(constants.ServiceName, logLevel(cfg.LogLevel, pc), cfg.StackDumpOnPanic)
	a, err := api.NewAuthenticator(ClientConfig(log, pc))
	if err != nil {
		return api.Session{}, err
	}
	s, err := a.Authenticate(ctx, pc.API.UserLogonID, pc.API.Password)
	if err != nil {
		return api.Session{}, err
	}
	_, _ = fmt.Fprintf(cfg.Output, "authenticated %v at %v: %v\n", pc.API.UserLogonID, pc.API.BaseURL, s)
	return s, nil
}
