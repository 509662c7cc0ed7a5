package shared

import (
	"fmt"
	"strings"

	"github.com/relloyd/obspipe/constants"
	"github.com/xo/dburl"
)

// ConnectionDetails is intended to hold credentials for a logical database connection.
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"database type" mandatory:"yes" yaml:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"database logical name" mandatory:"yes" yaml:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data"`
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	x := make([]string, 0, len(c.Data)+1)
	x = append(x, fmt.Sprintf("  type = %v", c.Type))
	if v, ok := c.Data["dsn"]; ok { // if there's a DSN...
		x = append(x, fmt.Sprintf("  dsn = %v", RedactDsn(c.Type, v)))
	} else { // else there's no DSN... (could be S3 connection)
		for k, v := range c.Data {
			if k == "password" || k == "secretKey" {
				v = "xxxxx"
			}
			x = append(x, fmt.Sprintf("  %v = %v", k, v))
		}
	}
	return strings.Join(x, "\n")
}

// RedactDsn removes the password from dsn. DSNs that cannot be parsed are hidden entirely.
func RedactDsn(connectionType string, dsn string) string {
	switch connectionType {
	case constants.ConnectionTypeNetezza:
		n := NetezzaConnectionDetails{Dsn: dsn}
		return n.String()
	case constants.ConnectionTypeDuckDB, constants.ConnectionTypeMock:
		return dsn // file paths carry no credentials.
	default:
		u, err := dburl.Parse(dsn)
		if err != nil {
			return "<unparseable dsn>"
		}
		return u.Redacted()
	}
}

// DBConnections holds connection details by name.
type DBConnections map[string]ConnectionDetails

// LoadConnection will load the supplied *c[connectionName], which is expected to be in c, using the interface
// to do the actual loading.
func (c *DBConnections) LoadConnection(i ConnectionGetter, connectionName string) error {
	conn := (*c)[connectionName]
	d, err := i.LoadConnection(conn.LogicalName) // fetch new ConnectionDetails from config using the logicalName, not the connectionName!
	if err != nil {
		return err
	}
	(*c)[connectionName] = d // replace the connection with the loaded version
	return nil
}
