package ianadist

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

// roundTripperFunc is a function that implements the http.RoundTripper interface.
// Useful to fake a http.Client with fakeClient.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (fn roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

func fakeClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn}
}

// testTZDataFiles checks that the TZDataFiles map adheres to the expected format.
func testTZDataFiles(t *testing.T, files TZDataFiles) {
	t.Helper()
	for file, data := range files {
		if len(file) == 0 {
			t.Errorf("TZDataFiles: empty file name.")
		}
		if !strings.HasPrefix(string(data), "# tzdb data for") && !strings.HasPrefix(string(data), "# tzdb links for") {
			t.Errorf("TZDataFiles: data missing magic string in %q", file)
		}
	}
}

var testReleaseFiles = map[string]string{
	"version":      "2024b\n",
	"africa":       "# tzdb data for Africa and environs\nZone Africa/Abidjan -0:16:08 - LMT 1912\n 0:00 - GMT\n",
	"europe":       "# tzdb data for Europe and environs\nRule EU 1981 max - Mar lastSun 1:00u 1:00 S\n",
	"backward":     "# tzdb links for backward compatibility\nLink Africa/Abidjan Africa/Accra\n",
	"factory":      "# tzdb data for noncivilian uses\nZone Factory 0 - -00\n",
	"leapseconds":  "# Allowance for leap seconds added to each time zone file.\n",
	"zone1970.tab": "# tzdb timezone descriptions\nCI\t+0519-00402\tAfrica/Abidjan\n",
	"zone.tab":     "# tzdb timezone descriptions (deprecated version)\n",
	"Makefile":     "# Make and install tzdb code and data.\n",
}

// testArchive returns a gzip-compressed tar archive of testReleaseFiles.
func testArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range testReleaseFiles {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func checkRelease(t *testing.T, release *Release) {
	t.Helper()
	testTZDataFiles(t, release.DataFiles)
	if release.Version != "2024b" {
		t.Errorf("Version = %q, want %q", release.Version, "2024b")
	}
	if string(release.Zone1970Tab) != testReleaseFiles["zone1970.tab"] {
		t.Errorf("Zone1970Tab = %q, want %q", release.Zone1970Tab, testReleaseFiles["zone1970.tab"])
	}
	want := []string{"africa", "europe", "backward", "factory"}
	if diff := cmp.Diff(want, release.DataFiles.Names()); diff != "" {
		t.Errorf("DataFiles.Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestLatest(t *testing.T) {
	const (
		testEtag  = "test-etag"
		emptyEtag = ""
	)
	data := testArchive(t)
	httpClient := fakeClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet {
			t.Errorf("unexpected method %q", req.Method)
		}
		if req.URL.String() != "https://data.iana.org/time-zones/tzdata-latest.tar.gz" {
			t.Errorf("unexpected URL %q", req.URL)
		}

		if req.Header.Get("If-None-Match") == testEtag {
			return &http.Response{
				StatusCode: http.StatusNotModified,
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		}

		resp := &http.Response{
			Body:       io.NopCloser(bytes.NewReader(data)),
			StatusCode: http.StatusOK,
		}
		resp.Header = make(http.Header)
		resp.Header.Set("etag", testEtag)
		return resp, nil
	})

	client := &Client{HTTPClient: httpClient}
	ctx := context.Background()

	// Test that Latest returns the latest data files.
	release, gotEtag, err := client.Latest(ctx, emptyEtag)
	if err != nil {
		t.Fatalf("Latest(%v) returned unexpected error: %v", emptyEtag, err)
	}
	if gotEtag != testEtag {
		t.Errorf("Latest(%v) returned ETag %q, want %q", emptyEtag, gotEtag, testEtag)
	}
	checkRelease(t, release)

	// Test that Latest returns no files when the ETag is up-to-date.
	release, newEtag, err := client.Latest(ctx, gotEtag)
	if err != nil {
		t.Errorf("Latest(%q) returned unexpected error: %v", gotEtag, err)
	}
	if newEtag != testEtag {
		t.Errorf("Latest(%q) returned ETag %q, want %q", gotEtag, newEtag, testEtag)
	}
	if release != nil {
		t.Errorf("Latest(%q) returned non-nil files", gotEtag)
	}
}

func TestDownload_UnexpectedStatus(t *testing.T) {
	client := &Client{HTTPClient: fakeClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(strings.NewReader("not found")),
		}, nil
	})}
	r, etag, err := client.Download(context.Background(), LatestArchive, "")
	if err == nil {
		t.Fatal("Download returned nil error for 404")
	}
	if r != nil || etag != "" {
		t.Errorf("Download returned (%v, %q), want (nil, \"\")", r, etag)
	}
}

func TestReadArchive(t *testing.T) {
	release, err := ReadArchive(bytes.NewReader(testArchive(t)))
	if err != nil {
		t.Fatalf("ReadArchive(...): unexpected non-nil error: %v", err)
	}
	checkRelease(t, release)
}

func TestReadDir(t *testing.T) {
	fsys := make(fstest.MapFS)
	for name, content := range testReleaseFiles {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	fsys["subdir/africa"] = &fstest.MapFile{Data: []byte("# tzdb data for nothing\n")}

	release, err := ReadDir(fsys)
	if err != nil {
		t.Fatalf("ReadDir(...): unexpected non-nil error: %v", err)
	}
	checkRelease(t, release)
}

func TestReadDir_NoVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"africa": &fstest.MapFile{Data: []byte(testReleaseFiles["africa"])},
	}
	if _, err := ReadDir(fsys); err == nil {
		t.Error("ReadDir without version file returned nil error")
	}
}
