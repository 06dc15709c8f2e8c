package sandbox

import (
	"github.com/goccy/go-yaml"
)

// RuleSet is the structured (YAML) alternative to the textual DSL in
// rules.go (SPEC_FULL §10.3), grounded on ardnew-aenv's use of
// github.com/goccy/go-yaml for its own config surfaces.
//
// Example:
//
//	restricted: true
//	packages:
//	  java.lang:
//	    classes:
//	      Runtime:
//	        members:
//	          exec: { execute: deny }
//	        wildcard: { read: allow }
type RuleSet struct {
	Restricted bool                  `yaml:"restricted"`
	Packages   map[string]PackageSet `yaml:"packages"`
}

type PackageSet struct {
	Wildcard AxisSet              `yaml:"wildcard"`
	Classes  map[string]ClassSet  `yaml:"classes"`
}

type ClassSet struct {
	Wildcard AxisSet             `yaml:"wildcard"`
	Members  map[string]AxisSet `yaml:"members"`
}

// AxisSet maps axis names ("read", "write", "execute", "annotate") to
// "allow"/"deny".
type AxisSet map[string]string

func ParseYAML(doc []byte) (*Permissions, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(doc, &rs); err != nil {
		return nil, err
	}
	return rs.Compile(), nil
}

func (rs RuleSet) Compile() *Permissions {
	var p *Permissions
	if rs.Restricted {
		p = Restricted()
	} else {
		p = Unrestricted()
	}
	for pkgName, pkgSet := range rs.Packages {
		applyAxisSet(p, pkgName, "", "", pkgSet.Wildcard)
		for className, classSet := range pkgSet.Classes {
			applyAxisSet(p, pkgName, className, "", classSet.Wildcard)
			for memberName, axes := range classSet.Members {
				applyAxisSet(p, pkgName, className, memberName, axes)
			}
		}
	}
	return p
}

func applyAxisSet(p *Permissions, pkg, class, member string, axes AxisSet) {
	for name, decision := range axes {
		axis, ok := axisFromName(name)
		if !ok {
			continue
		}
		d := Unset
		switch decision {
		case "allow":
			d = Allow
		case "deny":
			d = Deny
		}
		if class == "" {
			// package-level wildcard
			p.pkg(pkg, true).wildcard[axis] = d
			continue
		}
		p.Set(pkg, class, member, axis, d)
	}
}

func axisFromName(name string) (Axis, bool) {
	switch name {
	case "read":
		return Read, true
	case "write":
		return Write, true
	case "execute":
		return Execute, true
	case "annotate":
		return Annotate, true
	default:
		return 0, false
	}
}
