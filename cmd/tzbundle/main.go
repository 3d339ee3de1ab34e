// Command tzbundle builds a bundle of the IANA time zone database sources
// and writes it as JSON, SQLite or PostgreSQL.
//
// Usage:
//
//	tzbundle build --dir ./tzdata --windows-zones windowsZones.xml --json tz.json
//	tzbundle build --config tzbundle.yaml
//	tzbundle fetch --out tzdata-latest.tar.gz
//	tzbundle inspect tz.json Europe/Zurich
//	tzbundle diff old.json new.json
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ngrash/tzbundle/tzdb/ianadist"
)

// client downloads releases. Tests replace it.
var client = ianadist.DefaultClient

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tzbundle",
		Short:        "Bundle IANA time zone database sources",
		SilenceUsage: true,
	}
	cmd.AddCommand(buildCmd(), fetchCmd(), inspectCmd(), diffCmd())
	return cmd
}
