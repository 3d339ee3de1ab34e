package bundle

import (
	"sort"

	"github.com/ngrash/tzbundle/tzdata"
)

// Zone is a zone with its complete offset history and metadata.
type Zone struct {
	Name        string
	CountryCode string // from the zone table; empty if the zone has no row
	Latitude    string // ISO 6709, e.g. "+3733"
	Longitude   string // ISO 6709, e.g. "+12658"
	Comment     string

	// Transitions are in source order, oldest first. Only the last one may
	// have an empty Until.
	Transitions []Transition

	Aliases       []string // sorted
	PlatformNames []string // sorted
}

// Transition is one period of a zone's history, bounded above by Until.
type Transition struct {
	Until   tzdata.Until // as written; empty for the period currently in effect
	Offset  string       // STDOFF as written, e.g. "8:30" or "-0:16:08"
	Format  string       // abbreviation format, e.g. "KST", "CE%sT" or "%z"
	RuleSet string       // name of the rule set in effect; empty if none
	Save    string       // fixed amount of saved time when RULES is not a name, e.g. "1:00"
}

// Rule is one rule of a rule set. All fields are kept as written.
type Rule struct {
	Name   string
	From   string
	To     string
	Type   string
	In     string
	On     string
	At     string
	Save   string
	Letter string
}

// Spec returns the structured interpretation of r.
func (r Rule) Spec() (tzdata.RuleSpec, error) {
	return tzdata.RuleLine{
		Name: r.Name, From: r.From, To: r.To, Type: r.Type, In: r.In,
		On: r.On, At: r.At, Save: r.Save, Letter: r.Letter,
	}.Spec()
}

func ruleFromLine(l tzdata.RuleLine) Rule {
	return Rule{
		Name: l.Name, From: l.From, To: l.To, Type: l.Type, In: l.In,
		On: l.On, At: l.At, Save: l.Save, Letter: l.Letter,
	}
}

// PlatformMapping maps Windows time zone names to zone names and back.
// All value slices are sorted and free of duplicates.
type PlatformMapping struct {
	ByPlatform map[string][]string
	ByZone     map[string][]string
}

func (p PlatformMapping) clone() PlatformMapping {
	return PlatformMapping{ByPlatform: cloneSets(p.ByPlatform), ByZone: cloneSets(p.ByZone)}
}

func cloneSets(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Model is the merged result of a build. It is never modified after Build
// returns; accessors return copies.
type Model struct {
	version  string
	zones    map[string]*Zone
	aliases  map[string]string // alias name to zone name
	rules    map[string][]Rule
	platform PlatformMapping
}

// Version returns the tzdata version the model was built from.
func (m *Model) Version() string {
	return m.version
}

// ZoneNames returns the names of all zones in lexical order. Aliases are not included.
func (m *Model) ZoneNames() []string {
	return sortedKeys(m.zones)
}

// Zone returns a copy of the zone with the given name.
func (m *Model) Zone(name string) (Zone, bool) {
	z, ok := m.zones[name]
	if !ok {
		return Zone{}, false
	}
	c := *z
	c.Transitions = append([]Transition(nil), z.Transitions...)
	c.Aliases = append([]string(nil), z.Aliases...)
	c.PlatformNames = append([]string(nil), z.PlatformNames...)
	return c, true
}

// Resolve returns the zone name for name, which may be a zone name or an alias.
func (m *Model) Resolve(name string) (string, bool) {
	if _, ok := m.zones[name]; ok {
		return name, true
	}
	target, ok := m.aliases[name]
	return target, ok
}

// RuleSetNames returns the names of all rule sets in lexical order.
func (m *Model) RuleSetNames() []string {
	return sortedKeys(m.rules)
}

// RuleSet returns a copy of the named rule set in source order.
func (m *Model) RuleSet(name string) ([]Rule, bool) {
	rs, ok := m.rules[name]
	if !ok {
		return nil, false
	}
	return append([]Rule(nil), rs...), true
}

// Platform returns a copy of the platform name mapping.
func (m *Model) Platform() PlatformMapping {
	return m.platform.clone()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedSet returns the distinct values of s in lexical order.
func sortedSet(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(s))
	var out []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
