package bundle

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ngrash/tzbundle/tzdata"
	"github.com/ngrash/tzbundle/tzdb/windowszones"
	"github.com/ngrash/tzbundle/tzdb/zonetab"
)

const asia = `
# Rule	NAME	FROM	TO	-	IN	ON	AT	SAVE	LETTER/S
Rule RussiaAsia	1981	1984	-	Apr	1	 0:00	1:00	-
Rule RussiaAsia	1981	1983	-	Oct	1	 0:00	0	-
Rule Korea	1948	only	-	Jun	1	 0:00	1:00	D
Rule Azer	1997	2015	-	Mar	lastSun	 4:00	1:00	-
Rule Azer	1997	2015	-	Oct	lastSun	 5:00	0	-

# Zone	NAME		STDOFF	RULES	FORMAT	[UNTIL]
Zone	Asia/Baku	3:19:24 -	LMT	1924 May  2
			3:00	-	%z	1957 Mar
			4:00 RussiaAsia %z	1991 Mar 31  2:00s
			3:00 RussiaAsia %z	1992 Sep lastSun  2:00s
			4:00	-	%z	1996
			4:00	EUAsia	%z	1997
			4:00	Azer	%z

Zone	Asia/Seoul	8:27:52	-	LMT	1908 Apr  1
			8:30	-	KST	1912 Jan  1
			9:00	Korea	K%sT

Zone	Asia/Pyongyang	8:23:00 -	LMT	1908 Apr  1
			9:00	-	KST
`

const europe = `
Rule	EUAsia	1981	max	-	Mar	lastSun	 1:00u	1:00	S
Rule	EUAsia	1979	1995	-	Sep	lastSun	 1:00u	0	-
Rule	EUAsia	1996	max	-	Oct	lastSun	 1:00u	0	-

Zone	Europe/Paris	0:09:21 -	LMT	1891 Mar 16
			0:09:21	-	PMT	1911 Mar 11
			1:00	EUAsia	CE%sT
`

const backward = `
Link	Asia/Seoul	ROK
Link	Europe/Paris	Europe/Monaco
Link	Europe/Monaco	Etc/Monaco
`

func testSources() []Source {
	return []Source{
		{Name: "asia", Data: []byte(asia)},
		{Name: "europe", Data: []byte(europe)},
		{Name: "backward", Data: []byte(backward)},
	}
}

func mustBuild(t *testing.T, in Input, opts Options) (*Model, []error) {
	t.Helper()
	m, warns, err := Build(in, opts)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return m, warns
}

func TestBuild_Baku(t *testing.T) {
	m, _ := mustBuild(t, Input{Sources: testSources(), Version: "2024b"}, Options{})

	z, ok := m.Zone("Asia/Baku")
	if !ok {
		t.Fatal("Asia/Baku not found")
	}
	want := []Transition{
		{Until: "1924 May 2", Offset: "3:19:24", Format: "LMT"},
		{Until: "1957 Mar", Offset: "3:00", Format: "%z"},
		{Until: "1991 Mar 31 2:00s", Offset: "4:00", Format: "%z", RuleSet: "RussiaAsia"},
		{Until: "1992 Sep lastSun 2:00s", Offset: "3:00", Format: "%z", RuleSet: "RussiaAsia"},
		{Until: "1996", Offset: "4:00", Format: "%z"},
		{Until: "1997", Offset: "4:00", Format: "%z", RuleSet: "EUAsia"},
		{Offset: "4:00", Format: "%z", RuleSet: "Azer"},
	}
	if diff := cmp.Diff(want, z.Transitions); diff != "" {
		t.Errorf("Asia/Baku transitions mismatch (-want +got):\n%s", diff)
	}
	if m.Version() != "2024b" {
		t.Errorf("Version() = %q, want 2024b", m.Version())
	}
}

func TestBuild_RuleSetPreserved(t *testing.T) {
	m, _ := mustBuild(t, Input{Sources: testSources()}, Options{})

	got, ok := m.RuleSet("Korea")
	if !ok {
		t.Fatal("rule set Korea not found")
	}
	want := []Rule{{Name: "Korea", From: "1948", To: "only", Type: "-", In: "Jun", On: "1", At: "0:00", Save: "1:00", Letter: "D"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RuleSet(Korea) mismatch (-want +got):\n%s", diff)
	}

	spec, err := got[0].Spec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.From != 1948 || spec.To != 1948 || spec.Letter != "D" {
		t.Errorf("Spec() = %+v", spec)
	}
}

func TestBuild_RuleOrder(t *testing.T) {
	m, _ := mustBuild(t, Input{Sources: testSources()}, Options{})
	rs, _ := m.RuleSet("EUAsia")
	var got []string
	for _, r := range rs {
		got = append(got, r.From+"-"+r.To+" "+r.In)
	}
	want := []string{"1981-max Mar", "1979-1995 Sep", "1996-max Oct"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EUAsia order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RuleSetAcrossFiles(t *testing.T) {
	sources := []Source{
		{Name: "a", Data: []byte("Rule X 1990 only - Jan 1 0:00 1:00 D\nZone Test/A 1:00 X T%sT\n")},
		{Name: "b", Data: []byte("Rule X 1980 only - Jan 1 0:00 0 S\n")},
	}
	m, _ := mustBuild(t, Input{Sources: sources}, Options{})
	rs, _ := m.RuleSet("X")
	if len(rs) != 2 || rs[0].From != "1990" || rs[1].From != "1980" {
		t.Errorf("RuleSet(X) = %+v, want 1990 then 1980", rs)
	}
}

func TestBuild_FixedSave(t *testing.T) {
	sources := []Source{{Name: "x", Data: []byte("Zone Test/Fixed 1:00 1:00 TDT\n")}}
	m, _ := mustBuild(t, Input{Sources: sources}, Options{})
	z, _ := m.Zone("Test/Fixed")
	want := []Transition{{Offset: "1:00", Format: "TDT", Save: "1:00"}}
	if diff := cmp.Diff(want, z.Transitions); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_DuplicateZone(t *testing.T) {
	sources := append(testSources(), Source{Name: "backzone", Data: []byte(`
Zone	Europe/Paris	0:09:21 -	LMT	1891 Mar 16
			1:00	-	CET
`)})
	m, _, err := Build(Input{Sources: sources}, Options{})
	if m != nil {
		t.Error("Build() returned a model despite a duplicate zone")
	}
	if !IsKind(err, KindDuplicateZone) {
		t.Fatalf("Build() error = %v, want %s", err, KindDuplicateZone)
	}
	msg := err.Error()
	if !strings.Contains(msg, "europe:") || !strings.Contains(msg, "backzone:") {
		t.Errorf("error %q does not name both files", msg)
	}
}

func TestBuild_DanglingRulesAggregated(t *testing.T) {
	sources := []Source{{Name: "x", Data: []byte(`
Zone Test/A 1:00 Missing1 T%sT
Zone Test/B 1:00 - TST 1990
            1:00 Missing2 T%sT
`)}}
	_, _, err := Build(Input{Sources: sources}, Options{})
	var got []string
	for _, e := range Errors(err) {
		got = append(got, fmt.Sprintf("%s %s %s", e.Kind, e.Name, e.Pos))
	}
	want := []string{
		"dangling_rule Missing1 x:2",
		"dangling_rule Missing2 x:4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Aliases(t *testing.T) {
	m, _ := mustBuild(t, Input{Sources: testSources()}, Options{})

	z, _ := m.Zone("Europe/Paris")
	if diff := cmp.Diff([]string{"Etc/Monaco", "Europe/Monaco"}, z.Aliases); diff != "" {
		t.Errorf("Europe/Paris aliases mismatch (-want +got):\n%s", diff)
	}
	if got, ok := m.Resolve("ROK"); !ok || got != "Asia/Seoul" {
		t.Errorf("Resolve(ROK) = %q, %v", got, ok)
	}
	if got, ok := m.Resolve("Asia/Seoul"); !ok || got != "Asia/Seoul" {
		t.Errorf("Resolve(Asia/Seoul) = %q, %v", got, ok)
	}
	if _, ok := m.Resolve("Nowhere"); ok {
		t.Error("Resolve(Nowhere) succeeded")
	}
}

// chain returns link lines L1 -> L2 -> ... -> Ln -> end.
func chain(n int, end string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		target := fmt.Sprintf("L%d", i+1)
		if i == n {
			target = end
		}
		fmt.Fprintf(&b, "Link %s L%d\n", target, i)
	}
	return b.String()
}

func TestBuild_LinkGuard(t *testing.T) {
	const zone = "Zone Test/Real 1:00 - TST\n"
	cases := []struct {
		name  string
		links string
		kind  ErrorKind
	}{
		{"within guard", chain(DefaultLinkDepth, "Test/Real"), ""},
		{"beyond guard", chain(DefaultLinkDepth+1, "Test/Real"), KindAliasCycle},
		{"cycle", "Link B A\nLink A B\n", KindAliasCycle},
		{"dangling", chain(3, "Test/Gone"), KindUnresolvedAlias},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sources := []Source{{Name: "x", Data: []byte(zone + c.links)}}
			m, _, err := Build(Input{Sources: sources}, Options{})
			if c.kind == "" {
				if err != nil {
					t.Fatalf("Build() error: %v", err)
				}
				if got, _ := m.Resolve("L1"); got != "Test/Real" {
					t.Errorf("Resolve(L1) = %q, want Test/Real", got)
				}
				return
			}
			if !IsKind(err, c.kind) {
				t.Errorf("Build() error = %v, want %s", err, c.kind)
			}
		})
	}
}

func TestBuild_LinkWarnings(t *testing.T) {
	sources := append(testSources(), Source{Name: "extra", Data: []byte(`
Link	Asia/Seoul	ROK
Link	Asia/Seoul	Asia/Pyongyang
`)})
	m, warns := mustBuild(t, Input{Sources: sources}, Options{})

	var kinds []ErrorKind
	for _, w := range warns {
		kinds = append(kinds, w.(*Error).Kind)
	}
	want := []ErrorKind{KindDuplicateLink, KindShadowedLink}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("warning kinds mismatch (-want +got):\n%s", diff)
	}
	if got, _ := m.Resolve("Asia/Pyongyang"); got != "Asia/Pyongyang" {
		t.Errorf("Resolve(Asia/Pyongyang) = %q, want the zone itself", got)
	}

	conflict := append(testSources(), Source{Name: "extra", Data: []byte("Link Asia/Baku ROK\n")})
	if _, _, err := Build(Input{Sources: conflict}, Options{}); !IsKind(err, KindDuplicateLink) {
		t.Errorf("Build() error = %v, want %s", err, KindDuplicateLink)
	}
}

func TestBuild_Strict(t *testing.T) {
	sources := append(testSources(), Source{Name: "bad", Data: []byte("  3:00 - MSK\nBogus\n")})

	_, warns := mustBuild(t, Input{Sources: sources}, Options{})
	var kinds []ErrorKind
	for _, w := range warns {
		kinds = append(kinds, w.(*Error).Kind)
	}
	if diff := cmp.Diff([]ErrorKind{KindOrphanContinuation, KindMalformedRecord}, kinds); diff != "" {
		t.Errorf("warning kinds mismatch (-want +got):\n%s", diff)
	}

	_, _, err := Build(Input{Sources: sources}, Options{Strict: true})
	if !IsKind(err, KindOrphanContinuation) || !IsKind(err, KindMalformedRecord) {
		t.Errorf("strict Build() error = %v, want both record kinds", err)
	}
	if !strings.Contains(err.Error(), "bad:2") {
		t.Errorf("strict Build() error %q does not name bad:2", err)
	}
}

func TestBuild_UnreadableSource(t *testing.T) {
	huge := Source{Name: "huge", Data: []byte("# " + strings.Repeat("x", 2<<20) + "\n")}
	sources := append(testSources(), huge)
	for _, strict := range []bool{false, true} {
		_, warns, err := Build(Input{Sources: sources}, Options{Strict: strict})
		if !IsKind(err, KindUnreadableSource) {
			t.Errorf("Build(strict=%v) error = %v, want %s", strict, err, KindUnreadableSource)
		}
		for _, w := range warns {
			if IsKind(w, KindMalformedRecord) {
				t.Errorf("Build(strict=%v) warning %v, want none for an unreadable source", strict, w)
			}
		}
	}
}

func TestBuild_Metadata(t *testing.T) {
	rows := []zonetab.Row{
		{Pos: tzdata.Pos{File: "zone1970.tab", Line: 1}, CountryCode: "KR", Coordinates: "+3733+12658", Zone: "Asia/Seoul"},
		{Pos: tzdata.Pos{File: "zone1970.tab", Line: 2}, CountryCode: "AZ", Coordinates: "+4023+04951", Zone: "Asia/Baku", Comment: "Azerbaijan"},
		{Pos: tzdata.Pos{File: "zone1970.tab", Line: 3}, CountryCode: "XX", Coordinates: "+0000+00000", Zone: "Asia/Trimmed"},
		{Pos: tzdata.Pos{File: "zone1970.tab", Line: 4}, CountryCode: "ZZ", Coordinates: "+0000+00000", Zone: "Asia/Seoul"},
	}
	m, warns := mustBuild(t, Input{Sources: testSources(), Metadata: rows}, Options{})

	z, _ := m.Zone("Asia/Seoul")
	if z.CountryCode != "KR" || z.Latitude != "+3733" || z.Longitude != "+12658" {
		t.Errorf("Asia/Seoul metadata = %q %q %q", z.CountryCode, z.Latitude, z.Longitude)
	}
	z, _ = m.Zone("Asia/Baku")
	if z.Comment != "Azerbaijan" {
		t.Errorf("Asia/Baku comment = %q", z.Comment)
	}
	z, _ = m.Zone("Europe/Paris")
	if z.CountryCode != "" || z.Latitude != "" {
		t.Errorf("Europe/Paris has metadata %+v", z)
	}

	var names []string
	for _, w := range warns {
		if IsKind(w, KindOrphanMetadata) {
			names = append(names, w.(*Error).Name)
		}
	}
	if diff := cmp.Diff([]string{"Asia/Trimmed", "Asia/Seoul"}, names); diff != "" {
		t.Errorf("orphan metadata warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_PlatformOverride(t *testing.T) {
	entries := []windowszones.MapZone{
		{Other: "Korea Standard Time", Territory: "001", Zones: []string{"Asia/Pyongyang"}},
		{Other: "Korea Standard Time", Territory: "KR", Zones: []string{"Asia/Seoul"}},
		{Other: "Romance Standard Time", Territory: "001", Zones: []string{"Europe/Paris"}},
		{Other: "Romance Standard Time", Territory: "MC", Zones: []string{"Europe/Monaco"}},
		{Other: "Azerbaijan Standard Time", Territory: "001", Zones: []string{"Asia/Baku", "Asia/Nowhere"}},
	}
	m, warns := mustBuild(t, Input{Sources: testSources(), Platform: entries}, Options{})

	want := PlatformMapping{
		ByPlatform: map[string][]string{
			"Korea Standard Time":      {"Asia/Seoul"},
			"Romance Standard Time":    {"Europe/Paris"},
			"Azerbaijan Standard Time": {"Asia/Baku"},
		},
		ByZone: map[string][]string{
			"Asia/Seoul":   {"Korea Standard Time"},
			"Europe/Paris": {"Romance Standard Time"},
			"Asia/Baku":    {"Azerbaijan Standard Time"},
		},
	}
	if diff := cmp.Diff(want, m.Platform()); diff != "" {
		t.Errorf("Platform() mismatch (-want +got):\n%s", diff)
	}

	z, _ := m.Zone("Asia/Pyongyang")
	if len(z.PlatformNames) != 0 {
		t.Errorf("Asia/Pyongyang platform names = %v, want none", z.PlatformNames)
	}
	z, _ = m.Zone("Asia/Seoul")
	if diff := cmp.Diff([]string{"Korea Standard Time"}, z.PlatformNames); diff != "" {
		t.Errorf("Asia/Seoul platform names mismatch (-want +got):\n%s", diff)
	}

	if len(warns) != 1 || !IsKind(warns[0], KindUnknownPlatformZone) {
		t.Errorf("warnings = %v, want one %s", warns, KindUnknownPlatformZone)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	in := Input{
		Sources: testSources(),
		Metadata: []zonetab.Row{
			{CountryCode: "KR", Coordinates: "+3733+12658", Zone: "Asia/Seoul"},
		},
		Platform: []windowszones.MapZone{
			{Other: "Korea Standard Time", Territory: "001", Zones: []string{"Asia/Seoul"}},
		},
		Version: "2024b",
	}
	first, _ := mustBuild(t, in, Options{})
	second, _ := mustBuild(t, in, Options{})
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(Model{})); diff != "" {
		t.Errorf("rebuild mismatch (-first +second):\n%s", diff)
	}
}

func TestModel_AccessorsReturnCopies(t *testing.T) {
	m, _ := mustBuild(t, Input{Sources: testSources()}, Options{})

	z, _ := m.Zone("Asia/Seoul")
	z.Transitions[0].Offset = "changed"
	z.Aliases[0] = "changed"
	again, _ := m.Zone("Asia/Seoul")
	if again.Transitions[0].Offset != "8:27:52" || again.Aliases[0] != "ROK" {
		t.Error("Zone() exposed internal state")
	}

	rs, _ := m.RuleSet("Korea")
	rs[0].Save = "changed"
	again2, _ := m.RuleSet("Korea")
	if again2[0].Save != "1:00" {
		t.Error("RuleSet() exposed internal state")
	}

	want := []string{"Asia/Baku", "Asia/Pyongyang", "Asia/Seoul", "Europe/Paris"}
	if diff := cmp.Diff(want, m.ZoneNames()); diff != "" {
		t.Errorf("ZoneNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestError(t *testing.T) {
	err := newError(KindDuplicateZone, "Europe/Paris", tzdata.Pos{File: "backzone", Line: 3}, "also defined at %s", tzdata.Pos{File: "europe", Line: 9})
	want := `backzone:3: duplicate_zone "Europe/Paris": also defined at europe:9`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsKind(err, KindDuplicateZone) || IsKind(err, KindAliasCycle) {
		t.Error("IsKind misclassified error")
	}
}
