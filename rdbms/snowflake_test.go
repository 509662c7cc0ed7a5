package rdbms

import (
	"database/sql"
	"strings"
	"testing"
)

func TestSnowflakeGetDSNRoundTrip(t *testing.T) {
	in := &SnowflakeConnectionDetails{Account: "xy12345", DBName: "analytics", Schema: "jcr", User: "etl", Password: "secret", Warehouse: "load_wh", RoleName: "loader"}
	dsn, err := SnowflakeGetDSN(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dsn, "snowflake://") {
		t.Fatalf("expected a snowflake:// prefix; got %v", dsn)
	}
	if got, err := ConnectionTypeFromDsn(dsn); err != nil || got != "snowflake" {
		t.Fatalf("expected type snowflake; got %v, %v", got, err)
	}
	out, err := SnowflakeParseDSN(dsn)
	if err != nil {
		t.Fatal(err)
	}
	if out.DBName != in.DBName || out.Schema != in.Schema || out.User != in.User || out.Password != in.Password || out.Warehouse != in.Warehouse {
		t.Fatalf("expected %+v; got %+v", in, out)
	}
	if strings.Contains(out.String(), "secret") {
		t.Fatalf("expected the password to be hidden in %v", out.String())
	}
}

func TestSnowflakeGetDSNMissingFields(t *testing.T) {
	_, err := SnowflakeGetDSN(&SnowflakeConnectionDetails{Account: "xy12345"})
	if err == nil || !strings.Contains(err.Error(), "Snowflake password") {
		t.Fatalf("expected an error naming the missing fields; got %v", err)
	}
	if !(SnowflakeConnectionDetails{}).IsEmpty() || (SnowflakeConnectionDetails{User: "u"}).IsEmpty() {
		t.Fatal("unexpected IsEmpty result")
	}
}

func TestSnowflakeParseDSNRejectsOtherSchemes(t *testing.T) {
	if _, err := SnowflakeParseDSN("sqlserver://u:p@host/db"); err == nil {
		t.Fatal("expected an error for a non-snowflake DSN")
	}
}

// The snowflake driver parses its embedded CA certificates when the package is initialised.
func TestDriversRegistered(t *testing.T) {
	registered := strings.Join(sql.Drivers(), ",")
	for _, d := range []string{"snowflake", "duckdb", "sqlserver", "nzgo"} {
		if !strings.Contains(registered, d) {
			t.Fatalf("expected driver %v to be registered; got %v", d, registered)
		}
	}
}
