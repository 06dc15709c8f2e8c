package sandbox

// ClassHierarchy is supplied by the introspection layer so the sandbox can
// walk superclasses/interfaces without importing introspect (avoiding a
// cycle: introspect needs to consult the sandbox before invoking).
type ClassHierarchy interface {
	// Ancestors returns class's superclasses and interfaces, most-derived
	// first, up to (and including) the root object type.
	Ancestors(class string) []string
}

type rule struct {
	class   string
	allow   bool // true = allow-list entry, false = block-list entry
	declPos int
}

// Sandbox augments Permissions with per-class allow/block lists (resolved
// in declaration order) and member aliasing (spec §3.7, §4.3).
type Sandbox struct {
	Permissions *Permissions
	Inherit     bool
	Hierarchy   ClassHierarchy

	rules   []rule
	aliases map[string]map[string]string // class -> script name -> host name
}

func New(perms *Permissions, hierarchy ClassHierarchy, inherit bool) *Sandbox {
	return &Sandbox{
		Permissions: perms,
		Inherit:     inherit,
		Hierarchy:   hierarchy,
		aliases:     map[string]map[string]string{},
	}
}

// Allow adds an allow-list entry for class (and, when inherit is enabled,
// every class assignable to it).
func (s *Sandbox) Allow(class string) { s.rules = append(s.rules, rule{class: class, allow: true, declPos: len(s.rules)}) }

// Block adds a block-list entry.
func (s *Sandbox) Block(class string) { s.rules = append(s.rules, rule{class: class, allow: false, declPos: len(s.rules)}) }

// Alias makes member `scriptName` on `class` resolve to `hostName` before
// any axis check (spec §4.3). A blocked alias is indistinguishable from an
// undefined property, by construction: Resolve always checks the access
// axis for the rewritten (host) name, and the caller reports "undefined"
// either way.
func (s *Sandbox) Alias(class, scriptName, hostName string) {
	m, ok := s.aliases[class]
	if !ok {
		m = map[string]string{}
		s.aliases[class] = m
	}
	m[scriptName] = hostName
}

// ResolveAlias returns the host-visible name for a script-visible member
// name on class, or scriptName unchanged if no alias exists.
func (s *Sandbox) ResolveAlias(class, scriptName string) string {
	if m, ok := s.aliases[class]; ok {
		if host, ok := m[scriptName]; ok {
			return host
		}
	}
	return scriptName
}

// classAllowed applies the allow/block list in declaration order, with
// inherit walking the class hierarchy when enabled (spec §3.7).
func (s *Sandbox) classAllowed(class string) bool {
	if len(s.rules) == 0 {
		return true
	}
	candidates := []string{class}
	if s.Inherit && s.Hierarchy != nil {
		candidates = append(candidates, s.Hierarchy.Ancestors(class)...)
	}
	// last matching rule (by declaration order) across any candidate wins,
	// matching "resolved in order of declaration".
	decided := true
	found := false
	for _, r := range s.rules {
		for _, c := range candidates {
			if c == r.class {
				decided = r.allow
				found = true
			}
		}
	}
	if !found {
		// Presence of any allow-list rule switches the sandbox to
		// allow-list-only mode: a class that matches nothing is denied.
		for _, r := range s.rules {
			if r.allow {
				return false
			}
		}
		return true
	}
	return decided
}

// Check is the single gate every introspection lookup goes through before
// touching a host member (spec §4.2 step 4, §4.3). pkg may be "" when the
// caller has no package concept.
func (s *Sandbox) Check(pkg, class, member string, axis Axis) bool {
	if !s.classAllowed(class) {
		return false
	}
	host := s.ResolveAlias(class, member)
	if s.Permissions == nil {
		return true
	}
	if s.Permissions.Check(pkg, class, host, axis) {
		return true
	}
	if s.Inherit && s.Hierarchy != nil {
		for _, anc := range s.Hierarchy.Ancestors(class) {
			if s.Permissions.Check(pkg, anc, host, axis) {
				return true
			}
		}
	}
	return false
}
