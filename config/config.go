package config

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

var (
	Main        *File // defaults such as the pipeline file to run.
	Connections *File // warehouse and S3 connections.
	Credentials *File // API credentials.
)

func init() {
	initFiles()
}

func initFiles() {
	dir := mustGetConfigHomeDir()
	Main = NewFile(dir, MainFileFullName)
	Connections = NewFile(dir, ConnectionsFileFullName)
	Credentials = NewFile(dir, CredentialsFileFullName)
}

const (
	MainDir                 = ".obspipe"
	MainFileFullName        = "config.yaml"
	ConnectionsFileFullName = "connections.yaml"
	CredentialsFileFullName = "credentials.yaml"
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
}

func (k KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// File is an encrypted YAML map of key to value.
type File struct {
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	f            *EncryptedFile
	mu           sync.Mutex
}

func NewFile(dirName string, filename string) *File {
	return &File{
		FullPath: path.Join(dirName, filename),
		data:     make(map[string]interface{}),
		f:        NewEncryptedFile(dirName, filename),
	}
}

// Get decodes the value of key into out, which must be a pointer.
// KeyNotFoundError is returned if the key does not exist.
func (c *File) Get(key string, out interface{}) error {
	if reflect.ValueOf(out).Kind() != reflect.Ptr {
		return errors.New("out must be a pointer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return err
	}
	d, ok := c.data[key]
	if !ok {
		return KeyNotFoundError{c.FullPath, key}
	}
	return mapstructure.Decode(d, out)
}

// Set saves val under key, creating the file if required.
func (c *File) Set(key string, val interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return err
	}
	// Store the YAML form so values read back the same way whether or not the file was reloaded.
	b, err := yaml.Marshal(val)
	if err != nil {
		return fmt.Errorf("error marshalling value of key %v: %w", key, err)
	}
	var v interface{}
	if err := yaml.Unmarshal(b, &v); err != nil {
		return err
	}
	c.data[key] = v
	return c.save()
}

func (c *File) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return err
	}
	if _, ok := c.data[key]; !ok {
		return KeyNotFoundError{c.FullPath, key}
	}
	delete(c.data, key)
	return c.save()
}

// GetAllKeys returns the keys in the file, sorted.
func (c *File) GetAllKeys() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return nil, err
	}
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval, nil
}

func (c *File) save() error {
	b, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("error marshalling config file %v: %w", c.FullPath, err)
	}
	return c.f.Set(b)
}

// loadData reads the file once. A missing file is treated as empty.
func (c *File) loadData() error {
	if c.dataIsLoaded {
		return nil
	}
	b, err := c.f.Get()
	if err != nil {
		if errors.As(err, &FileNotFoundError{}) {
			c.dataIsLoaded = true
			return nil
		}
		return err
	}
	m := make(map[string]interface{})
	if err = yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	c.data = m
	c.dataIsLoaded = true
	return nil
}
