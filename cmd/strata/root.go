package main

import (
	"io"
	"time"

	"github.com/guillermoBallester/strata/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cli carries state shared by the subcommands.
type cli struct {
	stdout     io.Writer
	cfg        *config.Config
	configPath string

	configFile   string
	writeReports bool
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	c := &cli{stdout: stdout}

	root := &cobra.Command{
		Use:   "strata",
		Short: "Profile relational databases for data-quality audits",
		Long: `strata reads every table of the configured databases and reports their
structure, constraints, value distributions and count consistency.

Supported drivers: postgres, sqlserver, mysql, sqlite.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			overrides, err := parseOverrides(cmd.Flags())
			if err != nil {
				return configError("parsing flags", err)
			}
			overrides.ConfigFile = c.configFile

			c.cfg, c.configPath, err = config.Load(overrides)
			if err != nil {
				return configError("loading configuration", err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: ./strata.yaml when present)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.StringArray("source", nil, "data source as name=driver:dsn (repeatable)")
	flags.String("policy-file", "", "policy YAML with enumeration sets, assessment tables and context")
	flags.Duration("query-timeout", 0, "timeout for each statement sent to a source")
	flags.Int("concurrency", 0, "tables analysed at once per source")
	flags.String("output-dir", "", "directory for reports")
	flags.StringSlice("format", nil, "report formats: json, markdown, csv, xlsx")
	flags.String("audit-log", "", "append every statement to this NDJSON file")
	flags.Bool("otel", false, "enable OpenTelemetry tracing and metrics")
	flags.Int32("pool-max-conns", 0, "maximum connections per source")
	flags.Int32("pool-min-conns", 0, "minimum idle connections per postgres source")
	flags.Duration("pool-max-conn-lifetime", 0, "maximum lifetime of a pooled connection")

	root.AddCommand(
		newProfileCmd(c),
		newServeCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return root
}

// parseOverrides turns the flags the user set into config overrides.
// Unset flags stay nil so the file and environment keep precedence.
func parseOverrides(fs *pflag.FlagSet) (config.Overrides, error) {
	var o config.Overrides
	var err error

	if o.LogLevel, err = changedString(fs, "log-level"); err != nil {
		return o, err
	}
	if o.PolicyFile, err = changedString(fs, "policy-file"); err != nil {
		return o, err
	}
	if o.OutputDir, err = changedString(fs, "output-dir"); err != nil {
		return o, err
	}
	if o.AuditLog, err = changedString(fs, "audit-log"); err != nil {
		return o, err
	}
	if o.Transport, err = changedString(fs, "transport"); err != nil {
		return o, err
	}
	if o.HTTPAddr, err = changedString(fs, "http-addr"); err != nil {
		return o, err
	}
	if o.HTTPBearerToken, err = changedString(fs, "http-bearer-token"); err != nil {
		return o, err
	}

	if fs.Changed("source") {
		if o.Sources, err = fs.GetStringArray("source"); err != nil {
			return o, err
		}
	}
	if fs.Changed("format") {
		if o.Formats, err = fs.GetStringSlice("format"); err != nil {
			return o, err
		}
	}
	if fs.Changed("concurrency") {
		n, err := fs.GetInt("concurrency")
		if err != nil {
			return o, err
		}
		o.Concurrency = &n
	}
	if o.QueryTimeout, err = changedDuration(fs, "query-timeout"); err != nil {
		return o, err
	}
	if o.PoolMaxConnLifetime, err = changedDuration(fs, "pool-max-conn-lifetime"); err != nil {
		return o, err
	}
	if o.PoolMaxConns, err = changedInt32(fs, "pool-max-conns"); err != nil {
		return o, err
	}
	if o.PoolMinConns, err = changedInt32(fs, "pool-min-conns"); err != nil {
		return o, err
	}
	if fs.Changed("otel") {
		if o.OTelEnabled, err = fs.GetBool("otel"); err != nil {
			return o, err
		}
	}
	return o, nil
}

// changedString returns the flag value when the flag exists and was set.
func changedString(fs *pflag.FlagSet, name string) (*string, error) {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return nil, nil
	}
	v, err := fs.GetString(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedDuration(fs *pflag.FlagSet, name string) (*time.Duration, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	v, err := fs.GetDuration(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedInt32(fs *pflag.FlagSet, name string) (*int32, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	v, err := fs.GetInt32(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
