package actions

import (
	"errors"
	"fmt"
	"io"

	"github.com/relloyd/obspipe/config"
)

type APIConfigureConfig struct {
	ConfigFile  *config.File `errorTxt:"credentials file" mandatory:"yes"`
	Credentials config.APICredentials
	Force       bool
	Output      io.Writer
}

// RunAPIConfigure stores the API base URL and login in the encrypted credentials file.
func RunAPIConfigure(cfg *APIConfigureConfig) error {
	if cfg.ConfigFile == nil {
		return errors.New("missing credentials file")
	}
	existing, err := config.LoadAPICredentials(cfg.ConfigFile)
	if err == nil && existing.UserLogonID != "" && !cfg.Force {
		return fmt.Errorf("API credentials exist for %v, use force to replace them", existing.UserLogonID)
	} else if err != nil && !errors.As(err, &config.KeyNotFoundError{}) {
		return err
	}
	if err = config.SaveAPICredentials(cfg.ConfigFile, cfg.Credentials); err != nil {
		return err
	}
	printf(cfg.Output, "API credentials saved to %q\n", cfg.ConfigFile.FullPath)
	return nil
}

// RunAPIShow prints the stored API credentials with the password hidden.
func RunAPIShow(f *config.File, w io.Writer) error {
	a, err := config.LoadAPICredentials(f)
	if err != nil {
		return err
	}
	printf(w, "%v:\n%v\n", config.APICredentialsKey, a)
	return nil
}

func RunAPIRemove(f *config.File, w io.Writer) error {
	if err := f.Delete(config.APICredentialsKey); err != nil {
		return err
	}
	printf(w, "API credentials removed\n")
	return nil
}
