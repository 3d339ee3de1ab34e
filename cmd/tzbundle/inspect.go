package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ngrash/tzbundle/export"
	"github.com/ngrash/tzbundle/export/jsonexport"
	"github.com/ngrash/tzbundle/internal/tzexpand"
	"github.com/ngrash/tzbundle/tzdata"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <bundle> <zone>",
		Short: "Show the transitions of a zone in a JSON bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := jsonexport.ReadFile(args[0])
			if err != nil {
				return err
			}
			name, ok := lookup(doc, args[1])
			if !ok {
				return fmt.Errorf("%s: no zone or alias %q", args[0], args[1])
			}
			tz := doc.Timezones[name]

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Zone:        %s\n", name)
			if name != args[1] {
				fmt.Fprintf(out, "Alias:       %s\n", args[1])
			}
			fmt.Fprintf(out, "Version:     %s\n", doc.Version)
			if tz.CountryCode != "" {
				fmt.Fprintf(out, "Countries:   %s\n", tz.CountryCode)
				fmt.Fprintf(out, "Coordinates: %s %s\n", tz.Latitude, tz.Longitude)
			}
			if tz.Comment != "" {
				fmt.Fprintf(out, "Comment:     %s\n", tz.Comment)
			}
			if len(tz.Aliases) > 0 {
				fmt.Fprintf(out, "Aliases:     %s\n", strings.Join(tz.Aliases, ", "))
			}
			if len(tz.WinNames) > 0 {
				fmt.Fprintf(out, "Windows:     %s\n", strings.Join(tz.WinNames, ", "))
			}
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OFFSET\tRULES\tFORMAT\tUNTIL\tEXPANDED")
			for _, tr := range tz.Transitions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", tr.Offset, rulesColumn(tr), tr.Abbr, orDash(tr.ToUTC), expand(tr.ToUTC))
			}
			return w.Flush()
		},
	}
}

// lookup finds the zone called name, directly or through an alias.
func lookup(doc *export.Document, name string) (string, bool) {
	if _, ok := doc.Timezones[name]; ok {
		return name, true
	}
	zones := make([]string, 0, len(doc.Timezones))
	for z := range doc.Timezones {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	for _, z := range zones {
		for _, alias := range doc.Timezones[z].Aliases {
			if alias == name {
				return z, true
			}
		}
	}
	return "", false
}

func rulesColumn(tr export.Transition) string {
	switch {
	case tr.RuleName != nil:
		return *tr.RuleName
	case tr.Save != "":
		return tr.Save
	}
	return "-"
}

// expand returns the UNTIL column with omitted parts filled in.
func expand(until string) string {
	spec, err := tzdata.Until(until).Spec()
	if err != nil {
		return "invalid: " + err.Error()
	}
	m, ok := tzexpand.Earliest(spec)
	if !ok {
		return "-"
	}
	return m.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
