package sqlstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/guillermoBallester/strata/internal/core/domain"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name    string
		dialect dialect
		ident   string
		want    string
	}{
		{"sqlserver", sqlServer{schema: "dbo"}, "Level 1", "[Level 1]"},
		{"sqlserver escape", sqlServer{schema: "dbo"}, "a]b", "[a]]b]"},
		{"mysql", mySQL{}, "grade", "`grade`"},
		{"mysql escape", mySQL{}, "a`b", "`a``b`"},
		{"sqlite", sqlite{}, "AP Results", `"AP Results"`},
		{"sqlite escape", sqlite{}, `a"b`, `"a""b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.quote(tt.ident))
		})
	}
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "[audit].[Results]", sqlServer{schema: "audit"}.qualify("Results"))
	assert.Equal(t, "`Results`", mySQL{}.qualify("Results"))
	assert.Equal(t, `"Results"`, sqlite{}.qualify("Results"))
}

func TestColumn(t *testing.T) {
	assert.Equal(t, "[Level 1]", sqlServer{schema: "dbo"}.column("Results", "Level 1"))
	assert.Equal(t, "`grade`", mySQL{}.column("Results", "grade"))
	assert.Equal(t, `"AP Results"."APIB_IND"`, sqlite{}.column("AP Results", "APIB_IND"))
}

func TestCount(t *testing.T) {
	assert.Equal(t, "COUNT_BIG(*)", sqlServer{}.count("*"))
	assert.Equal(t, "COUNT_BIG([x])", sqlServer{}.count(sqlServer{}.quote("x")))
	assert.Equal(t, "COUNT(`x`)", mySQL{}.count(mySQL{}.quote("x")))
}

func TestResolve(t *testing.T) {
	d, driver, dsn, err := resolve(domain.Source{Driver: domain.DriverSQLServer, DSN: "sqlserver://u:p@h"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", driver)
	assert.Equal(t, "sqlserver://u:p@h", dsn)
	assert.Equal(t, sqlServer{schema: DefaultSQLServerSchema}, d)

	d, _, _, err = resolve(domain.Source{Driver: domain.DriverSQLServer}, Options{Schema: "audit"})
	require.NoError(t, err)
	assert.Equal(t, sqlServer{schema: "audit"}, d)

	_, driver, _, err = resolve(domain.Source{Driver: domain.DriverMySQL, DSN: "u:p@tcp(h)/db"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "mysql", driver)

	_, driver, dsn, err = resolve(domain.Source{Driver: domain.DriverSQLite, DSN: "file:memdb?mode=memory"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", driver)
	assert.Equal(t, "file:memdb?mode=memory", dsn)

	_, _, _, err = resolve(domain.Source{Driver: "oracle"}, Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNotFound(t *testing.T) {
	assert.True(t, mySQL{}.notFound(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: mysqlNoSuchTable})))
	assert.True(t, mySQL{}.notFound(&mysql.MySQLError{Number: mysqlUnknownColumn}))
	assert.False(t, mySQL{}.notFound(&mysql.MySQLError{Number: 1064}))
	assert.False(t, mySQL{}.notFound(errors.New("no such table")))

	assert.True(t, sqlServer{}.notFound(mssql.Error{Number: mssqlInvalidObject}))
	assert.False(t, sqlServer{}.notFound(mssql.Error{Number: 102}))
}

func TestRunnerClassify(t *testing.T) {
	r := &runner{notFound: mySQL{}.notFound}
	assert.ErrorIs(t, r.classify(&mysql.MySQLError{Number: mysqlNoSuchTable}), domain.ErrNotFound)
	assert.ErrorIs(t, r.classify(errors.New("deadlock")), domain.ErrQuery)
	assert.ErrorIs(t, r.classify(fmt.Errorf("x: %w", domain.ErrConnection)), domain.ErrConnection)
	assert.NoError(t, r.classify(nil))
}

func TestSplitDeclaredType(t *testing.T) {
	tests := []struct {
		in       string
		wantType string
		wantSize *int64
	}{
		{"TEXT", "TEXT", nil},
		{"VARCHAR(50)", "VARCHAR", ptr(int64(50))},
		{"DECIMAL(10, 2)", "DECIMAL", ptr(int64(10))},
		{"", "", nil},
		{"CHAR(x)", "CHAR", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, size := splitDeclaredType(tt.in)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func ptr[T any](v T) *T { return &v }
