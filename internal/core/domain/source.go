package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Supported store drivers.
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite"
)

// Source is one configured database to profile. Schema narrows postgres
// and SQL Server sources to one schema; other drivers ignore it.
type Source struct {
	Name       string `yaml:"name" json:"name"`
	Driver     string `yaml:"driver" json:"driver"`
	DSN        string `yaml:"dsn" json:"-"`
	Schema     string `yaml:"schema" json:"schema,omitempty"`
	Assessment bool   `yaml:"assessment" json:"assessment"`
}

// Validate checks the source is usable before any connection is attempted.
func (s Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: data source without a name", ErrConfiguration)
	}
	if s.DSN == "" {
		return fmt.Errorf("%w: data source %q has no dsn", ErrConfiguration, s.Name)
	}
	switch s.Driver {
	case DriverPostgres, DriverSQLServer, DriverMySQL, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("%w: data source %q has unsupported driver %q (want postgres, sqlserver, mysql or sqlite)",
			ErrConfiguration, s.Name, s.Driver)
	}
}

// Location is the DSN with any password removed, safe to put in reports.
func (s Source) Location() string {
	if u, err := url.Parse(s.DSN); err == nil && u.User != nil {
		return u.Redacted()
	}
	// go-sql-driver style: user:password@tcp(host)/db
	at := strings.LastIndex(s.DSN, "@")
	if at < 0 {
		return s.DSN
	}
	creds := s.DSN[:at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return creds[:colon] + ":xxxxx" + s.DSN[at:]
	}
	return s.DSN
}
