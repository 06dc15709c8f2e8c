// Package sandbox implements the permissions tree (H) and the per-engine
// sandbox (C) that gates host-object access by class and member name
// (spec §3.6, §3.7, §4.3).
package sandbox

// Axis is one of the three access axes, plus annotations.
type Axis int

const (
	Read Axis = iota
	Write
	Execute
	Annotate
)

// Decision is an explicit allow/deny, or "unset" meaning defer to the
// parent in the tree (spec §3.6 "nearest-ancestor decision").
type Decision int

const (
	Unset Decision = iota
	Allow
	Deny
)

type memberNode struct {
	decisions [4]Decision
}

type classNode struct {
	members map[string]*memberNode
	// wildcard applies to members not explicitly listed.
	wildcard [4]Decision
}

type packageNode struct {
	classes map[string]*classNode
	// wildcard applies to classes not explicitly listed.
	wildcard [4]Decision
}

// Permissions is a package → class → member tree (spec §3.6).
type Permissions struct {
	packages map[string]*packageNode
	// restricted selects the whole-tree default used when a package itself
	// is unset: Deny when true, Allow when false.
	restricted bool
}

// UNRESTRICTED allows everything by default.
func Unrestricted() *Permissions { return &Permissions{packages: map[string]*packageNode{}} }

// RESTRICTED denies everything by default.
func Restricted() *Permissions {
	return &Permissions{packages: map[string]*packageNode{}, restricted: true}
}

func (p *Permissions) pkg(name string, create bool) *packageNode {
	n, ok := p.packages[name]
	if !ok && create {
		n = &packageNode{classes: map[string]*classNode{}}
		p.packages[name] = n
	}
	return n
}

func (n *packageNode) class(name string, create bool) *classNode {
	c, ok := n.classes[name]
	if !ok && create {
		c = &classNode{members: map[string]*memberNode{}}
		n.classes[name] = c
	}
	return c
}

// DenyPackage blocks an entire package (rule form `"pkg.sub {}"`).
func (p *Permissions) DenyPackage(pkg string) {
	n := p.pkg(pkg, true)
	for i := range n.wildcard {
		n.wildcard[i] = Deny
	}
}

// DenyClass blocks one class within a package (rule form
// `"pkg.sub { Klass {} }"`).
func (p *Permissions) DenyClass(pkg, class string) {
	c := p.pkg(pkg, true).class(class, true)
	for i := range c.wildcard {
		c.wildcard[i] = Deny
	}
}

// Set records an explicit decision for one (package, class, member, axis).
func (p *Permissions) Set(pkg, class, member string, axis Axis, d Decision) {
	c := p.pkg(pkg, true).class(class, true)
	if member == "" {
		c.wildcard[axis] = d
		return
	}
	m, ok := c.members[member]
	if !ok {
		m = &memberNode{}
		c.members[member] = m
	}
	m.decisions[axis] = d
}

// Check resolves the nearest-ancestor decision for (class, member, axis).
// An absent permission defaults to Allow unless the tree is RESTRICTED, in
// which case it defaults to Deny (spec §4.3).
func (p *Permissions) Check(pkg, class, member string, axis Axis) bool {
	def := true
	if p.restricted {
		def = false
	}
	n, ok := p.packages[pkg]
	if !ok {
		return def
	}
	c, ok := n.classes[class]
	if !ok {
		if n.wildcard[axis] == Deny {
			return false
		}
		if n.wildcard[axis] == Allow {
			return true
		}
		return def
	}
	if member != "" {
		if m, ok := c.members[member]; ok && m.decisions[axis] != Unset {
			return m.decisions[axis] == Allow
		}
	}
	if c.wildcard[axis] != Unset {
		return c.wildcard[axis] == Allow
	}
	if n.wildcard[axis] != Unset {
		return n.wildcard[axis] == Allow
	}
	return def
}

// Compose overlays rules on top of base, returning a new Permissions (spec
// §3.6 "permissions.compose"). Later rules win on conflict.
func Compose(base *Permissions, overlays ...*Permissions) *Permissions {
	out := &Permissions{packages: map[string]*packageNode{}, restricted: base.restricted}
	mergeInto(out, base)
	for _, o := range overlays {
		mergeInto(out, o)
	}
	return out
}

func mergeInto(dst, src *Permissions) {
	for pkgName, pn := range src.packages {
		dp := dst.pkg(pkgName, true)
		for i, d := range pn.wildcard {
			if d != Unset {
				dp.wildcard[i] = d
			}
		}
		for className, cn := range pn.classes {
			dc := dp.class(className, true)
			for i, d := range cn.wildcard {
				if d != Unset {
					dc.wildcard[i] = d
				}
			}
			for memberName, mn := range cn.members {
				dm, ok := dc.members[memberName]
				if !ok {
					dm = &memberNode{}
					dc.members[memberName] = dm
				}
				for i, d := range mn.decisions {
					if d != Unset {
						dm.decisions[i] = d
					}
				}
			}
		}
	}
}
