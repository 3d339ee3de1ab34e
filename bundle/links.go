package bundle

// DefaultLinkDepth is the default number of link hops followed before a
// chain is reported as a cycle.
const DefaultLinkDepth = 8

// resolveLinks follows every link to a zone and attaches the link names to
// the zones they resolve to. It returns the alias map.
//
// A link whose name is also a zone is shadowed by the zone and reported as
// a warning. A chain that ends in a name that is neither a zone nor a link
// is unresolved; a chain longer than depth hops is a cycle.
func (m *merger) resolveLinks(depth int) map[string]string {
	aliases := make(map[string]string, len(m.links))
	for _, name := range sortedKeys(m.links) {
		l := m.links[name]
		if _, ok := m.zones[name]; ok {
			m.warns = append(m.warns, newError(KindShadowedLink, name, l.Pos,
				"zone of the same name takes precedence over link to %q", l.Target))
			continue
		}
		target, kind := m.follow(l.Target, depth)
		switch kind {
		case "":
			aliases[name] = target
			z := m.zones[target].zone
			z.Aliases = append(z.Aliases, name)
		case KindUnresolvedAlias:
			m.errs = append(m.errs, newError(kind, name, l.Pos,
				"chain ends at %q, which is neither a zone nor a link", target))
		case KindAliasCycle:
			m.errs = append(m.errs, newError(kind, name, l.Pos,
				"no zone reached within %d hops", depth))
		}
	}
	for _, e := range m.zones {
		e.zone.Aliases = sortedSet(e.zone.Aliases)
	}
	return aliases
}

// follow walks the link chain starting at target, which is one hop away
// from the link being resolved. It returns the zone reached, or the last
// name visited and the kind of failure.
func (m *merger) follow(target string, depth int) (string, ErrorKind) {
	cur := target
	for hops := 1; ; hops++ {
		if _, ok := m.zones[cur]; ok {
			return cur, ""
		}
		next, ok := m.links[cur]
		if !ok {
			return cur, KindUnresolvedAlias
		}
		if hops >= depth {
			return cur, KindAliasCycle
		}
		cur = next.Target
	}
}
