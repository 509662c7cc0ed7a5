package actions

import (
	"errors"
	"fmt"
	"io"

	"github.com/relloyd/obspipe/config"
	"github.com/relloyd/obspipe/helper"
)

// DefaultAddConfig saves a default CLI flag value, e.g. file=/etc/obspipe/pipeline.yaml.
type DefaultAddConfig struct {
	ConfigFile ConfigGetterSetter `errorTxt:"config-file" mandatory:"yes"`
	Key        string             `errorTxt:"key" mandatory:"yes"`
	Value      string             `errorTxt:"value" mandatory:"yes"`
	Force      bool
	Output     io.Writer
}

type DefaultRemoveConfig struct {
	ConfigFile ConfigGetterSetter `errorTxt:"config-file" mandatory:"yes"`
	Key        string             `errorTxt:"key" mandatory:"yes"`
	Output     io.Writer
}

// RunDefaultAdd adds key+value to the given config file.
// An existing key is only replaced when Force is set.
func RunDefaultAdd(cfg *DefaultAddConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	var val string
	err := cfg.ConfigFile.Get(cfg.Key, &val)
	if err == nil && !cfg.Force {
		return fmt.Errorf("key %q exists, use force to update the value or remove it first", cfg.Key)
	} else if err != nil && !errors.As(err, &config.KeyNotFoundError{}) && !errors.As(err, &config.FileNotFoundError{}) {
		return err
	}
	if err = cfg.ConfigFile.Set(cfg.Key, cfg.Value); err != nil {
		return fmt.Errorf("error writing config file after adding: %w", err)
	}
	printf(cfg.Output, "Key %q added\n", cfg.Key)
	return nil
}

func RunDefaultRemove(cfg *DefaultRemoveConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.Key); err != nil {
		return fmt.Errorf("unable to delete key %q from config: %w", cfg.Key, err)
	}
	printf(cfg.Output, "Key %q removed\n", cfg.Key)
	return nil
}

func RunDefaultList(f ConfigGetterSetter, w io.Writer) error {
	keys, err := f.GetAllKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		var val string
		if err := f.Get(k, &val); err != nil {
			return err
		}
		printf(w, "%v=%v\n", k, val)
	}
	return nil
}
