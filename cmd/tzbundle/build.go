package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ngrash/tzbundle/bundle"
	"github.com/ngrash/tzbundle/export"
	"github.com/ngrash/tzbundle/export/jsonexport"
	"github.com/ngrash/tzbundle/export/pgdb"
	"github.com/ngrash/tzbundle/export/sqlitedb"
	"github.com/ngrash/tzbundle/internal/config"
	"github.com/ngrash/tzbundle/internal/logger"
	"github.com/ngrash/tzbundle/tzdata"
	"github.com/ngrash/tzbundle/tzdb/ianadist"
	"github.com/ngrash/tzbundle/tzdb/windowszones"
	"github.com/ngrash/tzbundle/tzdb/zonetab"
)

func buildCmd() *cobra.Command {
	var (
		configPath string
		flags      config.Config
	)
	c := &cobra.Command{
		Use:   "build",
		Short: "Build a bundle from tzdata sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			overrideFlags(cmd, &cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, cleanup, err := logger.Setup(logger.Config{Path: cfg.Log.File, Debug: cfg.Log.Debug}, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			defer func() { _ = cleanup() }()

			m, err := build(cmd.Context(), cfg, log)
			if errs := bundle.Errors(err); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), e)
				}
				return fmt.Errorf("build failed with %d errors", len(errs))
			}
			if err != nil {
				return err
			}
			if err := writeOutputs(cmd.Context(), cfg.Output, m, log); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %s: %d zones, %d rule sets\n",
				m.Version(), len(m.ZoneNames()), len(m.RuleSetNames()))
			return nil
		},
	}

	f := c.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML build configuration")
	f.StringVar(&flags.Sources.Dir, "dir", "", "directory of an unpacked tzdata release")
	f.StringVar(&flags.Sources.Archive, "archive", "", "tzdata tar.gz archive")
	f.BoolVar(&flags.Sources.Latest, "latest", false, "download the latest tzdata release")
	f.StringVar(&flags.ZoneTable, "zone-table", "", "zone1970.tab to use instead of the release's")
	f.StringVar(&flags.WindowsZones, "windows-zones", "", "CLDR windowsZones.xml")
	f.BoolVar(&flags.Strict, "strict", false, "fail on malformed records")
	f.IntVar(&flags.LinkDepth, "link-depth", bundle.DefaultLinkDepth, "maximum link hops")
	f.StringVar(&flags.DefaultTerritory, "default-territory", windowszones.DefaultTerritory, "territory of fallback Windows entries")
	f.StringVar(&flags.Output.JSON, "json", "", "write the JSON bundle to this file")
	f.StringVar(&flags.Output.SQLite, "sqlite", "", "write the SQLite bundle to this file")
	f.StringVar(&flags.Output.Postgres, "postgres", "", "write the bundle to this PostgreSQL database")
	f.StringVar(&flags.Log.File, "log-file", "", "append logs to this file instead of stderr")
	f.BoolVar(&flags.Log.Debug, "debug", false, "enable debug logging")
	c.MarkFlagsMutuallyExclusive("dir", "archive", "latest")
	return c
}

// overrideFlags copies the flags set on the command line over cfg.
func overrideFlags(cmd *cobra.Command, cfg *config.Config, flags config.Config) {
	set := cmd.Flags().Changed
	if set("dir") || set("archive") || set("latest") {
		cfg.Sources = flags.Sources
	}
	for name, apply := range map[string]func(){
		"zone-table":        func() { cfg.ZoneTable = flags.ZoneTable },
		"windows-zones":     func() { cfg.WindowsZones = flags.WindowsZones },
		"strict":            func() { cfg.Strict = flags.Strict },
		"link-depth":        func() { cfg.LinkDepth = flags.LinkDepth },
		"default-territory": func() { cfg.DefaultTerritory = flags.DefaultTerritory },
		"json":              func() { cfg.Output.JSON = flags.Output.JSON },
		"sqlite":            func() { cfg.Output.SQLite = flags.Output.SQLite },
		"postgres":          func() { cfg.Output.Postgres = flags.Output.Postgres },
		"log-file":          func() { cfg.Log.File = flags.Log.File },
		"debug":             func() { cfg.Log.Debug = flags.Log.Debug },
	} {
		if set(name) {
			apply()
		}
	}
}

// build reads the inputs cfg names and builds the model.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*bundle.Model, error) {
	rel, err := loadRelease(ctx, cfg.Sources)
	if err != nil {
		return nil, err
	}
	log.Info("release.loaded", "version", rel.Version, "files", len(rel.DataFiles))

	in := bundle.Input{Version: rel.Version}
	for _, name := range rel.DataFiles.Names() {
		in.Sources = append(in.Sources, bundle.Source{Name: name, Data: rel.DataFiles[name]})
	}
	if in.Metadata, err = loadZoneTable(cfg, rel); err != nil {
		var pe *tzdata.ParseError
		if cfg.Strict || !errors.As(err, &pe) {
			return nil, err
		}
		log.Warn("zonetab.skipped", "error", err.Error())
	}
	if cfg.WindowsZones != "" {
		f, err := os.Open(cfg.WindowsZones)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		t, err := windowszones.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.WindowsZones, err)
		}
		in.Platform = t.MapZones
		log.Info("windowszones.loaded", "type_version", t.TypeVersion, "entries", len(t.MapZones))
	}

	opts := cfg.BuildOptions()
	opts.Logger = log
	m, _, err := bundle.Build(in, opts)
	return m, err
}

func loadRelease(ctx context.Context, s config.Sources) (*ianadist.Release, error) {
	switch {
	case s.Dir != "":
		rel, err := ianadist.ReadDir(os.DirFS(s.Dir))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Dir, err)
		}
		return rel, nil
	case s.Archive != "":
		f, err := os.Open(s.Archive)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rel, err := ianadist.ReadArchive(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Archive, err)
		}
		return rel, nil
	default:
		rel, _, err := client.Latest(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("download latest release: %w", err)
		}
		return rel, nil
	}
}

// loadZoneTable parses the configured zone table, falling back to the one
// shipped with the release. Rows that did parse are returned with the error.
func loadZoneTable(cfg config.Config, rel *ianadist.Release) ([]zonetab.Row, error) {
	name, data := "zone1970.tab", rel.Zone1970Tab
	if cfg.ZoneTable != "" {
		var err error
		if data, err = os.ReadFile(cfg.ZoneTable); err != nil {
			return nil, err
		}
		name = cfg.ZoneTable
	}
	if data == nil {
		return nil, nil
	}
	return zonetab.Parse(name, bytes.NewReader(data))
}

func writeOutputs(ctx context.Context, out config.Output, m *bundle.Model, log *slog.Logger) error {
	if out.JSON != "" {
		if err := jsonexport.WriteFile(out.JSON, export.NewDocument(m)); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		log.Info("export.json", "path", out.JSON)
	}
	if out.SQLite == "" && out.Postgres == "" {
		return nil
	}
	tables := export.NewTables(m)
	if out.SQLite != "" {
		if err := sqlitedb.WriteFile(ctx, out.SQLite, tables); err != nil {
			return fmt.Errorf("write sqlite: %w", err)
		}
		log.Info("export.sqlite", "path", out.SQLite, "transitions", len(tables.Transitions))
	}
	if out.Postgres != "" {
		s, err := pgdb.Open(ctx, out.Postgres)
		if err != nil {
			return fmt.Errorf("write postgres: %w", err)
		}
		defer s.Close()
		if err := s.Write(ctx, tables); err != nil {
			return fmt.Errorf("write postgres: %w", err)
		}
		log.Info("export.postgres", "transitions", len(tables.Transitions))
	}
	return nil
}
