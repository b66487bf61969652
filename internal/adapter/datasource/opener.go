// Package datasource picks the store adapter for each configured source.
package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/strata/internal/adapter/postgres"
	"github.com/guillermoBallester/strata/internal/adapter/sqlstore"
	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
)

// Options are shared by every store the opener creates.
type Options struct {
	QueryTimeout time.Duration
	Pool         postgres.PoolSettings
	Auditor      port.QueryAuditor
}

// NewOpener returns a port.StoreOpener that validates each source and
// dispatches on its driver.
func NewOpener(opts Options) port.StoreOpener {
	return func(ctx context.Context, src domain.Source) (port.Store, error) {
		if err := src.Validate(); err != nil {
			return nil, err
		}

		switch src.Driver {
		case domain.DriverPostgres:
			store, err := postgres.Open(ctx, src, postgres.Options{
				QueryTimeout: opts.QueryTimeout,
				Pool:         opts.Pool,
				Auditor:      opts.Auditor,
			})
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", src.Name, err)
			}
			return store, nil
		case domain.DriverSQLServer, domain.DriverMySQL, domain.DriverSQLite:
			store, err := sqlstore.Open(ctx, src, sqlstore.Options{
				QueryTimeout: opts.QueryTimeout,
				MaxOpenConns: int(opts.Pool.MaxConns),
				Auditor:      opts.Auditor,
			})
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", src.Name, err)
			}
			return store, nil
		default:
			return nil, fmt.Errorf("%w: unsupported driver %q", domain.ErrConfiguration, src.Driver)
		}
	}
}
