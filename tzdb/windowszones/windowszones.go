// Package windowszones parses the CLDR windowsZones.xml table that maps
// Windows time zone names to IANA zone names per territory.
//
//	<mapTimezones otherVersion="7e11800" typeVersion="2021a">
//		<mapZone other="Korea Standard Time" territory="001" type="Asia/Seoul"/>
//		<mapZone other="Korea Standard Time" territory="KR" type="Asia/Seoul"/>
//	</mapTimezones>
package windowszones

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DefaultTerritory is the CLDR territory code for the worldwide default entry.
const DefaultTerritory = "001"

// MapZone is one mapZone element.
type MapZone struct {
	Other     string   // Windows time zone name
	Territory string   // CLDR territory code; DefaultTerritory for the fallback entry
	Zones     []string // IANA zone names, in document order
}

// Table is a parsed windowsZones.xml.
type Table struct {
	OtherVersion string
	TypeVersion  string
	MapZones     []MapZone
}

type document struct {
	MapTimezones struct {
		OtherVersion string `xml:"otherVersion,attr"`
		TypeVersion  string `xml:"typeVersion,attr"`
		MapZones     []struct {
			Other     string `xml:"other,attr"`
			Territory string `xml:"territory,attr"`
			Type      string `xml:"type,attr"`
		} `xml:"mapZone"`
	} `xml:"windowsZones>mapTimezones"`
}

// Parse reads windowsZones.xml from r. Entries without a Windows name or
// without zones are skipped.
func Parse(r io.Reader) (*Table, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode windowsZones: %w", err)
	}
	t := &Table{
		OtherVersion: doc.MapTimezones.OtherVersion,
		TypeVersion:  doc.MapTimezones.TypeVersion,
	}
	for _, mz := range doc.MapTimezones.MapZones {
		zones := strings.Fields(mz.Type)
		if mz.Other == "" || len(zones) == 0 {
			continue
		}
		territory := mz.Territory
		if territory == "" {
			territory = DefaultTerritory
		}
		t.MapZones = append(t.MapZones, MapZone{Other: mz.Other, Territory: territory, Zones: zones})
	}
	return t, nil
}
