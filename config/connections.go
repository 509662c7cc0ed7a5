package config

import (
	"fmt"

	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/rdbms/shared"
)

// LoadConnection fetches the named connection. It implements shared.ConnectionGetter.
func (c *File) LoadConnection(connectionName string) (shared.ConnectionDetails, error) {
	d := shared.ConnectionDetails{}
	if err := c.Get(connectionName, &d); err != nil {
		return d, err
	}
	if d.Type == "" {
		return d, fmt.Errorf("connection %q has no type: use 'config warehouse' to recreate it", connectionName)
	}
	return d, nil
}

// SaveConnection validates and stores d under its LogicalName.
func (c *File) SaveConnection(d shared.ConnectionDetails) error {
	if err := helper.ValidateStructIsPopulated(&d); err != nil {
		return err
	}
	return c.Set(d.LogicalName, d)
}
