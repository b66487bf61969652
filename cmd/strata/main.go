// Command strata profiles relational databases for data-quality audits.
//
// Usage:
//
//	strata profile [source...]   analyse configured sources and write reports
//	strata serve                 expose the profiler as MCP tools
//	strata config show           print the effective configuration
//	strata version               print version information
//
// Sources come from strata.yaml, STRATA_SOURCES or repeated
// --source name=driver:dsn flags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		exitWithError(err)
	}
}
