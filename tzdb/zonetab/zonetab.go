// Package zonetab parses the zone1970.tab and zone.tab metadata tables
// distributed with the IANA time zone database.
//
// Each non-comment line has three or four tab-separated columns:
//
//	codes  coordinates  TZ  [comments]
//	CH,DE,LI  +4723+00832  Europe/Zurich  Büsingen
package zonetab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ngrash/tzbundle/tzdata"
)

// Row is one line of a zone table. Columns are kept as written.
type Row struct {
	Pos         tzdata.Pos
	CountryCode string // one code, or several separated by commas in zone1970.tab
	Coordinates string // ISO 6709 sign-degrees-minutes[-seconds], latitude then longitude
	Zone        string
	Comment     string
}

// Codes returns the country codes of r.
func (r Row) Codes() []string {
	return strings.Split(r.CountryCode, ",")
}

// LatLon splits the coordinates of r into latitude and longitude.
func (r Row) LatLon() (lat, lon string, ok bool) {
	return SplitCoordinates(r.Coordinates)
}

// SplitCoordinates splits an ISO 6709 coordinate pair such as "+3733+12658"
// at the sign that starts the longitude.
func SplitCoordinates(c string) (lat, lon string, ok bool) {
	if len(c) < 2 || !isSign(c[0]) {
		return "", "", false
	}
	i := strings.IndexAny(c[1:], "+-")
	if i < 0 {
		return "", "", false
	}
	i++
	if i == 1 || i == len(c)-1 {
		return "", "", false
	}
	return c[:i], c[i:], true
}

func isSign(c byte) bool {
	return c == '+' || c == '-'
}

// maxLineLength bounds the length of a single table line.
const maxLineLength = 1 << 20

// Parse reads a zone table from r. Name is used in error positions.
//
// Like tzdata.Parse, Parse skips bad lines and returns one *tzdata.ParseError
// per bad line joined together with every row that did parse.
func Parse(name string, r io.Reader) ([]Row, error) {
	var (
		rows    []Row
		errs    []error
		scanner = bufio.NewScanner(r)
		n       int
	)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		n++
		text := scanner.Text()
		if strings.HasPrefix(text, "#") || strings.TrimSpace(text) == "" {
			continue
		}
		pos := tzdata.Pos{File: name, Line: n}
		row, err := parseRow(pos, text)
		if err != nil {
			errs = append(errs, &tzdata.ParseError{Pos: pos, Line: text, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return rows, errors.Join(errs...)
}

func parseRow(pos tzdata.Pos, text string) (Row, error) {
	cols := strings.Split(strings.TrimRight(text, "\r"), "\t")
	if len(cols) < 3 || len(cols) > 4 {
		return Row{}, fmt.Errorf("%w: expected 3 or 4 tab-separated columns, got %d", tzdata.ErrMalformedRecord, len(cols))
	}
	row := Row{Pos: pos, CountryCode: cols[0], Coordinates: cols[1], Zone: cols[2]}
	if len(cols) == 4 {
		row.Comment = cols[3]
	}
	if row.CountryCode == "" || row.Zone == "" {
		return Row{}, fmt.Errorf("%w: empty country code or zone name", tzdata.ErrMalformedRecord)
	}
	if _, _, ok := SplitCoordinates(row.Coordinates); !ok {
		return Row{}, fmt.Errorf("%w: invalid coordinates %q", tzdata.ErrMalformedRecord, row.Coordinates)
	}
	return row, nil
}
