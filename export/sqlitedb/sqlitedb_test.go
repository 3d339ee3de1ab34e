package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ngrash/tzbundle/export"
)

func testTables() *export.Tables {
	return &export.Tables{
		Zones: []export.ZoneRow{
			{Name: "Asia/Seoul", CountryCode: "KR", Latitude: "+3733", Longitude: "+12658"},
			{Name: "Etc/Fixed"},
		},
		Transitions: []export.TransitionRow{
			{ZoneName: "Asia/Seoul", Seq: 0, ToUTC: "1908 Apr 1", Offset: "8:27:52", Abbr: "LMT"},
			{ZoneName: "Asia/Seoul", Seq: 1, Offset: "9:00", Abbr: "K%sT", RuleName: "ROK"},
			{ZoneName: "Etc/Fixed", Seq: 0, Offset: "1:00", Abbr: "FDT", Save: "1:00"},
		},
		Rules: []export.RuleRow{
			{RuleName: "ROK", Seq: 0, From: "1948", To: "only", Type: "-", In: "Jun", On: "1", At: "0:00", Save: "1:00", Letter: "D"},
			{RuleName: "ROK", Seq: 1, From: "1948", To: "only", Type: "-", In: "Sep", On: "12", At: "24:00", Save: "0", Letter: "S"},
		},
		Aliases:        []export.AliasRow{{Alias: "ROK", ZoneName: "Asia/Seoul"}},
		WindowsMapping: []export.WindowsMappingRow{{WindowsName: "Korea Standard Time", ZoneName: "Asia/Seoul"}},
		Metadata:       []export.MetadataRow{{Key: export.MetadataVersion, Value: "2024b"}},
	}
}

func TestWriteRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "tz.db")
	want := testTables()
	if err := WriteFile(ctx, path, want); err != nil {
		t.Fatal(err)
	}
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	got, err := db.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}

	var n int
	if err := db.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM transitions WHERE rule_name IS NULL").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("transitions without rule set = %d, want 2", n)
	}
}

func TestWrite_Replaces(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "tz.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Write(ctx, testTables()); err != nil {
		t.Fatal(err)
	}
	want := &export.Tables{
		Zones:    []export.ZoneRow{{Name: "UTC"}},
		Metadata: []export.MetadataRow{{Key: export.MetadataVersion, Value: "2024c"}},
	}
	if err := db.Write(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := db.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_ManyRows(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "tz.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	want := &export.Tables{Zones: []export.ZoneRow{{Name: "Etc/Many"}}}
	for i := 0; i < 2*batchSize+7; i++ {
		want.Transitions = append(want.Transitions, export.TransitionRow{ZoneName: "Etc/Many", Seq: i, Offset: "0", Abbr: "UTC"})
	}
	if err := db.Write(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := db.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_ForeignKey(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "tz.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	bad := &export.Tables{Aliases: []export.AliasRow{{Alias: "ROK", ZoneName: "Asia/Seoul"}}}
	if err := db.Write(ctx, bad); err == nil {
		t.Fatal("Write() succeeded with an alias to a missing zone")
	}
}
