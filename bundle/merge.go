package bundle

import (
	"bytes"
	"errors"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ngrash/tzbundle/tzdata"
)

// parsed is the result of parsing one source.
type parsed struct {
	file  tzdata.File
	errs  []*Error
	fatal *Error // source could not be read; always a build error
}

// parseSources parses every source concurrently. Results are in input order
// and each goroutine writes only its own slot.
func parseSources(sources []Source, log *slog.Logger) []parsed {
	results := make([]parsed, len(sources))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			f, err := tzdata.Parse(src.Name, bytes.NewReader(src.Data))
			var pe *tzdata.ParseError
			if err != nil && !errors.As(err, &pe) {
				results[i] = parsed{file: f, fatal: newError(KindUnreadableSource, src.Name, tzdata.Pos{}, "%w", err)}
			} else {
				results[i] = parsed{file: f, errs: recordErrors(err)}
			}
			log.Debug("bundle.parse",
				"file", src.Name,
				"zones", len(f.Zones),
				"rules", len(f.Rules),
				"links", len(f.Links),
				"errors", len(results[i].errs))
			return nil
		})
	}
	_ = g.Wait() // goroutines report through results
	return results
}

// zoneEntry is a zone under construction together with the positions
// needed for error reports.
type zoneEntry struct {
	zone  *Zone
	pos   tzdata.Pos
	lines []tzdata.Pos // position of the zone line behind each transition
}

// merger combines per-file results into global maps.
type merger struct {
	zones map[string]*zoneEntry
	rules map[string][]Rule
	links map[string]tzdata.LinkLine
	errs  []error // structural
	warns []error
}

func newMerger() *merger {
	return &merger{
		zones: make(map[string]*zoneEntry),
		rules: make(map[string][]Rule),
		links: make(map[string]tzdata.LinkLine),
	}
}

// add merges one parsed file. Files must be added in processing order.
func (m *merger) add(f tzdata.File) {
	for _, z := range f.Zones {
		if prev, ok := m.zones[z.Name]; ok {
			m.errs = append(m.errs, newError(KindDuplicateZone, z.Name, z.Pos(),
				"also defined at %s", prev.pos))
			continue
		}
		m.zones[z.Name] = newZoneEntry(z)
	}
	for _, r := range f.Rules {
		m.rules[r.Name] = append(m.rules[r.Name], ruleFromLine(r))
	}
	for _, l := range f.Links {
		prev, ok := m.links[l.Name]
		switch {
		case !ok:
			m.links[l.Name] = l
		case prev.Target == l.Target:
			m.warns = append(m.warns, newError(KindDuplicateLink, l.Name, l.Pos,
				"repeats link at %s", prev.Pos))
		default:
			m.errs = append(m.errs, newError(KindDuplicateLink, l.Name, l.Pos,
				"links to %q but %s links it to %q", l.Target, prev.Pos, prev.Target))
		}
	}
}

func newZoneEntry(z tzdata.Zone) *zoneEntry {
	e := &zoneEntry{
		zone: &Zone{Name: z.Name, Transitions: make([]Transition, 0, len(z.Lines))},
		pos:  z.Pos(),
	}
	for _, l := range z.Lines {
		e.zone.Transitions = append(e.zone.Transitions, newTransition(l))
		e.lines = append(e.lines, l.Pos)
	}
	return e
}

func newTransition(l tzdata.ZoneLine) Transition {
	t := Transition{Until: l.Until, Offset: l.Offset, Format: l.Format}
	switch r := l.RulesSpec(); r.Form {
	case tzdata.ZoneRulesName:
		t.RuleSet = r.Name
	case tzdata.ZoneRulesTime:
		t.Save = l.Rules
	}
	return t
}

// checkRuleRefs reports every transition that names a missing rule set.
func (m *merger) checkRuleRefs() {
	for _, name := range sortedKeys(m.zones) {
		e := m.zones[name]
		for i, t := range e.zone.Transitions {
			if t.RuleSet == "" {
				continue
			}
			if _, ok := m.rules[t.RuleSet]; !ok {
				m.errs = append(m.errs, newError(KindDanglingRule, t.RuleSet, e.lines[i],
					"referenced by zone %q", name))
			}
		}
	}
}
