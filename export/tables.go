package export

import (
	"sort"

	"github.com/ngrash/tzbundle/bundle"
)

// Tables is the relational form of a model. Rows are sorted by their keys;
// Seq columns keep source order within a zone or rule set.
type Tables struct {
	Zones          []ZoneRow
	Transitions    []TransitionRow
	Rules          []RuleRow
	Aliases        []AliasRow
	WindowsMapping []WindowsMappingRow
	Metadata       []MetadataRow
}

type ZoneRow struct {
	Name        string
	CountryCode string
	Latitude    string
	Longitude   string
	Comment     string
}

// TransitionRow is one transition. An empty RuleName is stored as NULL.
type TransitionRow struct {
	ZoneName string
	Seq      int
	ToUTC    string
	Offset   string
	Abbr     string
	RuleName string
	Save     string
}

type RuleRow struct {
	RuleName string
	Seq      int
	From     string
	To       string
	Type     string
	In       string
	On       string
	At       string
	Save     string
	Letter   string
}

type AliasRow struct {
	Alias    string
	ZoneName string
}

type WindowsMappingRow struct {
	WindowsName string
	ZoneName    string
}

// MetadataRow is a key/value pair describing the bundle, such as its version.
type MetadataRow struct {
	Key   string
	Value string
}

// MetadataVersion is the metadata key of the tzdata version.
const MetadataVersion = "version"

// NewTables builds the Tables for m.
func NewTables(m *bundle.Model) *Tables {
	t := &Tables{
		Metadata: []MetadataRow{{Key: MetadataVersion, Value: m.Version()}},
	}
	for _, name := range m.ZoneNames() {
		z, _ := m.Zone(name)
		t.Zones = append(t.Zones, ZoneRow{
			Name:        name,
			CountryCode: z.CountryCode,
			Latitude:    z.Latitude,
			Longitude:   z.Longitude,
			Comment:     z.Comment,
		})
		for i, tr := range z.Transitions {
			t.Transitions = append(t.Transitions, TransitionRow{
				ZoneName: name,
				Seq:      i,
				ToUTC:    string(tr.Until),
				Offset:   tr.Offset,
				Abbr:     tr.Format,
				RuleName: tr.RuleSet,
				Save:     tr.Save,
			})
		}
		for _, alias := range z.Aliases {
			t.Aliases = append(t.Aliases, AliasRow{Alias: alias, ZoneName: name})
		}
	}
	sort.Slice(t.Aliases, func(i, j int) bool { return t.Aliases[i].Alias < t.Aliases[j].Alias })

	for _, name := range m.RuleSetNames() {
		rs, _ := m.RuleSet(name)
		for i, r := range rs {
			t.Rules = append(t.Rules, RuleRow{
				RuleName: name, Seq: i,
				From: r.From, To: r.To, Type: r.Type, In: r.In,
				On: r.On, At: r.At, Save: r.Save, Letter: r.Letter,
			})
		}
	}

	byPlatform := m.Platform().ByPlatform
	platforms := make([]string, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		for _, zone := range byPlatform[p] {
			t.WindowsMapping = append(t.WindowsMapping, WindowsMappingRow{WindowsName: p, ZoneName: zone})
		}
	}
	return t
}

// Version returns the version metadata value, or "" if there is none.
func (t *Tables) Version() string {
	for _, r := range t.Metadata {
		if r.Key == MetadataVersion {
			return r.Value
		}
	}
	return ""
}

// Document derives the hierarchical form from t. For tables built by
// NewTables it equals NewDocument of the same model.
func (t *Tables) Document() *Document {
	doc := &Document{
		Timezones:      make(map[string]Timezone, len(t.Zones)),
		Rules:          make(map[string][]Rule),
		WindowsMapping: make(map[string][]string),
		Version:        t.Version(),
	}
	for _, z := range t.Zones {
		doc.Timezones[z.Name] = Timezone{
			CountryCode: z.CountryCode,
			Coordinates: z.Latitude + z.Longitude,
			Latitude:    z.Latitude,
			Longitude:   z.Longitude,
			Comment:     z.Comment,
			Transitions: []Transition{},
			Aliases:     []string{},
			WinNames:    []string{},
		}
	}

	transitions := append([]TransitionRow(nil), t.Transitions...)
	sort.SliceStable(transitions, func(i, j int) bool {
		if transitions[i].ZoneName != transitions[j].ZoneName {
			return transitions[i].ZoneName < transitions[j].ZoneName
		}
		return transitions[i].Seq < transitions[j].Seq
	})
	for _, r := range transitions {
		tz, ok := doc.Timezones[r.ZoneName]
		if !ok {
			continue
		}
		tz.Transitions = append(tz.Transitions, Transition{
			ToUTC:    r.ToUTC,
			Offset:   r.Offset,
			Abbr:     r.Abbr,
			RuleName: ruleName(r.RuleName),
			Save:     r.Save,
		})
		doc.Timezones[r.ZoneName] = tz
	}

	rules := append([]RuleRow(nil), t.Rules...)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].RuleName != rules[j].RuleName {
			return rules[i].RuleName < rules[j].RuleName
		}
		return rules[i].Seq < rules[j].Seq
	})
	for _, r := range rules {
		doc.Rules[r.RuleName] = append(doc.Rules[r.RuleName], Rule{
			From: r.From, To: r.To, Type: r.Type, In: r.In,
			On: r.On, At: r.At, Save: r.Save, Letter: r.Letter,
		})
	}

	for _, r := range t.Aliases {
		if tz, ok := doc.Timezones[r.ZoneName]; ok {
			tz.Aliases = append(tz.Aliases, r.Alias)
			doc.Timezones[r.ZoneName] = tz
		}
	}
	for _, r := range t.WindowsMapping {
		doc.WindowsMapping[r.WindowsName] = append(doc.WindowsMapping[r.WindowsName], r.ZoneName)
		if tz, ok := doc.Timezones[r.ZoneName]; ok {
			tz.WinNames = append(tz.WinNames, r.WindowsName)
			doc.Timezones[r.ZoneName] = tz
		}
	}
	for name, tz := range doc.Timezones {
		sort.Strings(tz.Aliases)
		sort.Strings(tz.WinNames)
		doc.Timezones[name] = tz
	}
	for name, zones := range doc.WindowsMapping {
		sort.Strings(zones)
		doc.WindowsMapping[name] = zones
	}
	return doc
}
