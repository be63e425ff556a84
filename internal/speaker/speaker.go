// Package speaker maps raw speech-source labels onto the closed set of
// conversational roles used by the interview feed.
package speaker

import (
	"regexp"
	"strconv"
	"strings"
)

type Role string

const (
	Investigator Role = "Investigator"
	Witness      Role = "Witness"
	Accused      Role = "Accused"
	Victim       Role = "Victim"
)

// Roles lists every role in the closed set.
var Roles = []Role{Investigator, Witness, Accused, Victim}

func (r Role) String() string {
	return string(r)
}

// ParseRole resolves a configured role name, case-insensitively.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

type LabelKind int

const (
	LabelUnrecognized LabelKind = iota
	LabelKnown
	LabelGeneric
)

// Label is the parsed form of a raw speaker tag.
// Role is set for LabelKnown, Index for LabelGeneric.
type Label struct {
	Kind  LabelKind
	Role  Role
	Index int
}

var genericLabelPattern = regexp.MustCompile(`(?i)^speaker\s*[_#-]?\s*(\d+)$`)

var containsRules = []struct {
	needle string
	role   Role
}{
	{needle: "witness", role: Witness},
	{needle: "accused", role: Accused},
	{needle: "victim", role: Victim},
}

// ParseLabel classifies a raw label. Matching ignores case and surrounding space.
func ParseLabel(raw string) Label {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if lower == "investigator" {
		return Label{Kind: LabelKnown, Role: Investigator}
	}
	for _, rule := range containsRules {
		if strings.Contains(lower, rule.needle) {
			return Label{Kind: LabelKnown, Role: rule.role}
		}
	}
	if m := genericLabelPattern.FindStringSubmatch(trimmed); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return Label{Kind: LabelGeneric, Index: n}
		}
	}
	return Label{Kind: LabelUnrecognized}
}

// Normalize always returns a role from the closed set. Labels that do not
// name a role resolve to hint, or Witness when hint is unset or Investigator.
func Normalize(raw string, hint Role) Role {
	label := ParseLabel(raw)
	if label.Kind == LabelKnown {
		return label.Role
	}
	return fallback(hint)
}

func fallback(hint Role) Role {
	switch hint {
	case Witness, Accused, Victim:
		return hint
	default:
		return Witness
	}
}
