// Package bundle merges parsed tzdata sources, the zone table and the
// Windows zone mapping into a single read-only Model.
//
// Build runs in stages. Sources are parsed concurrently, one goroutine per
// file, and then merged in input order: zones by name, rule sets by
// concatenation, links into a single alias map. Rule set references and link
// chains are checked next. Any structural defect found so far fails the
// build with every defect joined into one error. Zone table rows and
// platform names are then attached; anomalies there are only warnings.
package bundle

import (
	"errors"
	"io"
	"log/slog"

	"github.com/ngrash/tzbundle/tzdb/windowszones"
	"github.com/ngrash/tzbundle/tzdb/zonetab"
)

// Source is a named tzdata source file, such as "europe".
type Source struct {
	Name string
	Data []byte
}

// Input is everything a build reads. Sources are merged in order.
type Input struct {
	Sources  []Source
	Metadata []zonetab.Row
	Platform []windowszones.MapZone
	Version  string
}

// Options control a build. The zero value is ready to use.
type Options struct {
	// Strict makes malformed records and orphan continuation lines fail the
	// build. By default such lines are skipped and reported as warnings.
	Strict bool
	// LinkDepth is the maximum number of hops followed when resolving a
	// link. Zero means DefaultLinkDepth.
	LinkDepth int
	// DefaultTerritory is the territory of fallback platform name entries.
	// Empty means windowszones.DefaultTerritory.
	DefaultTerritory string
	// Logger receives progress events. Nil discards them.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.LinkDepth <= 0 {
		o.LinkDepth = DefaultLinkDepth
	}
	if o.DefaultTerritory == "" {
		o.DefaultTerritory = windowszones.DefaultTerritory
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Build builds a Model from in.
//
// The returned warnings are non-fatal anomalies, each an *Error. If the
// sources have structural defects, Build returns a nil Model and an error
// joining one *Error per defect; use IsKind or Errors to inspect it.
func Build(in Input, opts Options) (*Model, []error, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	var (
		m     = newMerger()
		warns []error
	)
	for _, p := range parseSources(in.Sources, log) {
		if p.fatal != nil {
			m.errs = append(m.errs, p.fatal)
		}
		for _, e := range p.errs {
			if opts.Strict {
				m.errs = append(m.errs, e)
			} else {
				warns = append(warns, e)
			}
		}
		m.add(p.file)
	}
	m.checkRuleRefs()
	aliases := m.resolveLinks(opts.LinkDepth)
	warns = append(warns, m.warns...)

	if len(m.errs) > 0 {
		log.Error("bundle.build.failed", "errors", len(m.errs), "warnings", len(warns))
		return nil, warns, errors.Join(m.errs...)
	}
	log.Debug("bundle.merge",
		"zones", len(m.zones),
		"rule_sets", len(m.rules),
		"aliases", len(aliases))

	applied, w := enrich(m.zones, in.Metadata)
	warns = append(warns, w...)
	log.Debug("bundle.enrich", "rows", len(in.Metadata), "applied", applied)

	platform, w := mapPlatforms(m.zones, aliases, in.Platform, opts.DefaultTerritory)
	warns = append(warns, w...)
	log.Debug("bundle.platform", "platform_names", len(platform.ByPlatform), "zones", len(platform.ByZone))

	for _, w := range warns {
		log.Warn("bundle.warning", "error", w.Error())
	}

	model := &Model{
		version:  in.Version,
		zones:    make(map[string]*Zone, len(m.zones)),
		aliases:  aliases,
		rules:    m.rules,
		platform: platform,
	}
	for name, e := range m.zones {
		model.zones[name] = e.zone
	}
	log.Info("bundle.build",
		"version", in.Version,
		"zones", len(model.zones),
		"rule_sets", len(model.rules),
		"aliases", len(aliases),
		"warnings", len(warns))
	return model, warns, nil
}
