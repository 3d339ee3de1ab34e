package main

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/cobra"

	"github.com/ngrash/tzbundle/export"
	"github.com/ngrash/tzbundle/export/jsonexport"
)

// errDifferent is returned by diff --exit-code when the bundles differ.
var errDifferent = errors.New("bundles are different")

func diffCmd() *cobra.Command {
	var (
		ignoreVersion bool
		exitCode      bool
	)
	c := &cobra.Command{
		Use:   "diff <bundle A> <bundle B>",
		Short: "Compare two JSON bundles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := jsonexport.ReadFile(args[0])
			if err != nil {
				return err
			}
			b, err := jsonexport.ReadFile(args[1])
			if err != nil {
				return err
			}

			var opts []cmp.Option
			if ignoreVersion {
				opts = append(opts, cmpopts.IgnoreFields(export.Document{}, "Version"))
			}
			out := cmd.OutOrStdout()
			if diff := cmp.Diff(a, b, opts...); diff != "" {
				fmt.Fprintln(out, "bundles are different: -A +B")
				fmt.Fprintln(out, diff)
				if exitCode {
					return errDifferent
				}
				return nil
			}
			fmt.Fprintln(out, "bundles are identical")
			return nil
		},
	}
	c.Flags().BoolVar(&ignoreVersion, "ignore-version", false, "ignore the tzdata version")
	c.Flags().BoolVar(&exitCode, "exit-code", false, "fail if the bundles differ")
	return c
}
