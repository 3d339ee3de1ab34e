// Package config loads tzbundle build configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ngrash/tzbundle/bundle"
	"github.com/ngrash/tzbundle/tzdb/windowszones"
)

// Kind classifies configuration errors.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidConfig Kind = "invalid_config"
)

// Error wraps a configuration failure with the operation and file involved.
type Error struct {
	Op   string
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		s += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		s += fmt.Sprintf(": %v", e.Err)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a configuration error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// Config describes one bundle build.
type Config struct {
	Sources Sources `yaml:"sources"`
	// ZoneTable overrides the zone1970.tab shipped with the sources.
	ZoneTable    string `yaml:"zone_table"`
	WindowsZones string `yaml:"windows_zones"`

	Strict           bool   `yaml:"strict"`
	LinkDepth        int    `yaml:"link_depth"`
	DefaultTerritory string `yaml:"default_territory"`

	Output Output `yaml:"output"`
	Log    Log    `yaml:"log"`
}

// Sources names exactly one of an unpacked tzdata directory, a tzdata
// tar.gz archive, or the latest release downloaded from IANA.
type Sources struct {
	Dir     string `yaml:"dir"`
	Archive string `yaml:"archive"`
	Latest  bool   `yaml:"latest"`
}

func (s Sources) count() int {
	n := 0
	for _, set := range []bool{s.Dir != "", s.Archive != "", s.Latest} {
		if set {
			n++
		}
	}
	return n
}

type Output struct {
	JSON   string `yaml:"json"`
	SQLite string `yaml:"sqlite"`
	// Postgres is a connection string. Environment variables are expanded
	// so that credentials can stay out of the file.
	Postgres string `yaml:"postgres"`
}

type Log struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LinkDepth:        bundle.DefaultLinkDepth,
		DefaultTerritory: windowszones.DefaultTerritory,
	}
}

// Load reads the YAML file at path on top of Default. Relative paths in the
// file are resolved against the file's directory.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &Error{Op: "config.load", Kind: KindNotFound, Path: path, Err: err}
	}
	cfg, err := Decode(bytes.NewReader(b))
	if err != nil {
		return Config{}, &Error{Op: "config.load", Kind: KindInvalidConfig, Path: path, Err: err}
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Decode reads YAML from r on top of Default. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	cfg.Output.Postgres = os.ExpandEnv(cfg.Output.Postgres)
	return cfg, nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{
		&c.Sources.Dir, &c.Sources.Archive,
		&c.ZoneTable, &c.WindowsZones,
		&c.Output.JSON, &c.Output.SQLite,
		&c.Log.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks that c describes a runnable build.
func (c Config) Validate() error {
	var errs []error
	switch c.Sources.count() {
	case 0:
		errs = append(errs, errors.New("sources: one of dir, archive or latest is required"))
	case 1:
	default:
		errs = append(errs, errors.New("sources: dir, archive and latest are mutually exclusive"))
	}
	if c.LinkDepth < 0 {
		errs = append(errs, fmt.Errorf("link_depth: must not be negative, got %d", c.LinkDepth))
	}
	if c.Output == (Output{}) {
		errs = append(errs, errors.New("output: at least one of json, sqlite or postgres is required"))
	}
	if len(errs) > 0 {
		return &Error{Op: "config.validate", Kind: KindInvalidConfig, Err: errors.Join(errs...)}
	}
	return nil
}

// BuildOptions returns the bundle options c selects.
func (c Config) BuildOptions() bundle.Options {
	return bundle.Options{
		Strict:           c.Strict,
		LinkDepth:        c.LinkDepth,
		DefaultTerritory: c.DefaultTerritory,
	}
}
