// Package export presents a bundle.Model in the two shapes consumers read:
// a hierarchical Document, which is what the JSON bundle contains, and
// normalized relational Tables. Each can be derived from the other.
package export

import (
	"github.com/ngrash/tzbundle/bundle"
)

// Document is the hierarchical form of a model.
type Document struct {
	Timezones      map[string]Timezone `json:"timezones"`
	Rules          map[string][]Rule   `json:"rules"`
	WindowsMapping map[string][]string `json:"windows_mapping"`
	Version        string              `json:"_version"`
}

// Timezone is a zone in a Document. Coordinates is Latitude followed by Longitude.
type Timezone struct {
	CountryCode string       `json:"country_code"`
	Coordinates string       `json:"coordinates"`
	Latitude    string       `json:"latitude"`
	Longitude   string       `json:"longitude"`
	Comment     string       `json:"comment"`
	Transitions []Transition `json:"transitions"`
	Aliases     []string     `json:"aliases"`
	WinNames    []string     `json:"win_names"`
}

// Transition is a zone period in a Document. RuleName is nil when no rule
// set applies.
type Transition struct {
	ToUTC    string  `json:"to_utc"`
	Offset   string  `json:"offset"`
	Abbr     string  `json:"abbr"`
	RuleName *string `json:"rule_name"`
	Save     string  `json:"save,omitempty"`
}

// Rule is a rule in a Document. Its name is the key of the enclosing rule set.
type Rule struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Type   string `json:"type"`
	In     string `json:"in"`
	On     string `json:"on"`
	At     string `json:"at"`
	Save   string `json:"save"`
	Letter string `json:"letter"`
}

// NewDocument builds the Document for m.
func NewDocument(m *bundle.Model) *Document {
	doc := &Document{
		Timezones:      make(map[string]Timezone),
		Rules:          make(map[string][]Rule),
		WindowsMapping: make(map[string][]string),
		Version:        m.Version(),
	}
	for _, name := range m.ZoneNames() {
		z, _ := m.Zone(name)
		tz := Timezone{
			CountryCode: z.CountryCode,
			Coordinates: z.Latitude + z.Longitude,
			Latitude:    z.Latitude,
			Longitude:   z.Longitude,
			Comment:     z.Comment,
			Transitions: make([]Transition, 0, len(z.Transitions)),
			Aliases:     nonNil(z.Aliases),
			WinNames:    nonNil(z.PlatformNames),
		}
		for _, t := range z.Transitions {
			tz.Transitions = append(tz.Transitions, Transition{
				ToUTC:    string(t.Until),
				Offset:   t.Offset,
				Abbr:     t.Format,
				RuleName: ruleName(t.RuleSet),
				Save:     t.Save,
			})
		}
		doc.Timezones[name] = tz
	}
	for _, name := range m.RuleSetNames() {
		rs, _ := m.RuleSet(name)
		rules := make([]Rule, 0, len(rs))
		for _, r := range rs {
			rules = append(rules, Rule{
				From: r.From, To: r.To, Type: r.Type, In: r.In,
				On: r.On, At: r.At, Save: r.Save, Letter: r.Letter,
			})
		}
		doc.Rules[name] = rules
	}
	for platform, zones := range m.Platform().ByPlatform {
		doc.WindowsMapping[platform] = zones
	}
	return doc
}

func ruleName(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
