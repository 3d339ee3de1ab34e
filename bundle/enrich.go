package bundle

import (
	"github.com/ngrash/tzbundle/tzdb/zonetab"
)

// enrich joins zone table rows onto zones by name. The first row for a
// zone wins. Rows for unknown zones are reported and otherwise ignored.
func enrich(zones map[string]*zoneEntry, rows []zonetab.Row) (applied int, warns []error) {
	seen := make(map[string]zonetab.Row, len(rows))
	for _, row := range rows {
		if prev, ok := seen[row.Zone]; ok {
			warns = append(warns, newError(KindOrphanMetadata, row.Zone, row.Pos,
				"duplicate row; keeping %s", prev.Pos))
			continue
		}
		seen[row.Zone] = row
		e, ok := zones[row.Zone]
		if !ok {
			warns = append(warns, newError(KindOrphanMetadata, row.Zone, row.Pos, "no such zone"))
			continue
		}
		z := e.zone
		z.CountryCode = row.CountryCode
		z.Comment = row.Comment
		z.Latitude, z.Longitude, _ = row.LatLon()
		applied++
	}
	return applied, warns
}
