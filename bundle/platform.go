package bundle

import (
	"github.com/ngrash/tzbundle/tzdata"
	"github.com/ngrash/tzbundle/tzdb/windowszones"
)

// platformKey identifies a mapZone entry.
type platformKey struct {
	platform  string
	territory string
}

// mapPlatforms builds the platform name mapping in two passes. Entries for
// the default territory are applied first. Entries for specific territories
// are then unioned per platform name, and that union replaces the default
// zone set of the platform name.
//
// Zone names are canonicalized through aliases; names that are neither zones
// nor aliases are dropped with a warning. The inverse mapping is attached
// to each zone as PlatformNames.
func mapPlatforms(zones map[string]*zoneEntry, aliases map[string]string, entries []windowszones.MapZone, defaultTerritory string) (PlatformMapping, []error) {
	var warns []error
	canonical := func(mz windowszones.MapZone) []string {
		var out []string
		for _, name := range mz.Zones {
			if _, ok := zones[name]; ok {
				out = append(out, name)
				continue
			}
			if target, ok := aliases[name]; ok {
				out = append(out, target)
				continue
			}
			warns = append(warns, newError(KindUnknownPlatformZone, name, tzdata.Pos{},
				"mapped from %q (territory %s)", mz.Other, mz.Territory))
		}
		return out
	}

	working := make(map[platformKey][]string)
	var order []platformKey
	for _, mz := range entries {
		k := platformKey{mz.Other, mz.Territory}
		if _, ok := working[k]; !ok {
			order = append(order, k)
		}
		working[k] = append(working[k], canonical(mz)...)
	}

	byPlatform := make(map[string][]string)
	for _, k := range order {
		if k.territory == defaultTerritory {
			byPlatform[k.platform] = append(byPlatform[k.platform], working[k]...)
		}
	}
	overrides := make(map[string][]string)
	for _, k := range order {
		if k.territory != defaultTerritory {
			overrides[k.platform] = append(overrides[k.platform], working[k]...)
		}
	}
	for platform, set := range overrides {
		if len(set) > 0 {
			byPlatform[platform] = set
		}
	}

	byZone := make(map[string][]string)
	for platform, set := range byPlatform {
		set = sortedSet(set)
		if len(set) == 0 {
			delete(byPlatform, platform)
			continue
		}
		byPlatform[platform] = set
		for _, zone := range set {
			byZone[zone] = append(byZone[zone], platform)
		}
	}
	for zone, names := range byZone {
		names = sortedSet(names)
		byZone[zone] = names
		zones[zone].zone.PlatformNames = append([]string(nil), names...)
	}
	return PlatformMapping{ByPlatform: byPlatform, ByZone: byZone}, warns
}
