package config

import (
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
)

var obspipeHomeDir string

// mustGetConfigHomeDir returns the full path to the directory that stores all config files.
func mustGetConfigHomeDir() string {
	if obspipeHomeDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		obspipeHomeDir = path.Join(home, MainDir)
	}
	return obspipeHomeDir
}

// SetHomeDir points the package level config files at dir instead of ~/.obspipe.
func SetHomeDir(dir string) {
	obspipeHomeDir = dir
	initFiles()
}

// makeDir will make the given directory if it does not already exist.
func makeDir(dir string) error {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err = os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("error creating directory %v: %w", dir, err)
		}
	} else if err != nil {
		return err
	}
	return nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
