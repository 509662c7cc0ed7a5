package actions

import (
	"github.com/relloyd/obspipe/rdbms/shared"
)

type ConnectionLoader interface {
	LoadConnection(connectionName string) (shared.ConnectionDetails, error)
}

type ConfigGetter interface {
	Get(key string, out interface{}) error
}

type ConfigGetterSetter interface {
	ConfigGetter
	Set(key string, val interface{}) error
	Delete(key string) error
	GetAllKeys() ([]string, error)
}
