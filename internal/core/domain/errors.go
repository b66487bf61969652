package domain

import "errors"

// Error taxonomy shared by every store adapter and service. Adapters wrap
// driver errors with one of these so callers can classify failures with
// errors.Is without knowing the driver.
var (
	ErrNotFound      = errors.New("not found")
	ErrConnection    = errors.New("connection failed")
	ErrQuery         = errors.New("query failed")
	ErrConfiguration = errors.New("invalid configuration")

	ErrInconsistentDistribution = errors.New("inconsistent value distribution")
)

// Error kinds reported inline in analysis results.
const (
	KindConnection    = "connection_error"
	KindLookup        = "lookup_error"
	KindQuery         = "query_error"
	KindConfiguration = "configuration_error"
	KindUnknown       = "error"
)

// ErrorKind maps err to the kind string recorded next to its message in a
// result. Configuration is checked first: a missing database file is both a
// configuration problem and the reason a connection could not be made.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrNotFound):
		return KindLookup
	case errors.Is(err, ErrQuery):
		return KindQuery
	default:
		return KindUnknown
	}
}
