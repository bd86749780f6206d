package match

import (
	"fmt"
	"regexp"
	"strings"
)

// Family is a pattern family keyword.
type Family string

const (
	// FamilyGiven accepts whatever the paths could provide: shared if any
	// contribution is shared, leased from the contributions that are
	// leased.
	FamilyGiven Family = "given"
	// FamilyShared requires (or grants) shared access.
	FamilyShared Family = "shared"
	// FamilyLeased requires the value be leased from the permitted set.
	FamilyLeased Family = "leased"
)

// Pattern is a declared permission-type pattern: a family plus the paths
// (or permission variables) whose call-site permissions parameterize it.
type Pattern struct {
	Family Family
	Paths  []string
}

// String renders the pattern in surface syntax, e.g. "leased{a, b}".
func (p Pattern) String() string {
	return fmt.Sprintf("%s{%s}", p.Family, strings.Join(p.Paths, ", "))
}

// patternSyntax matches "family{path, path, ...}". Paths are dotted
// identifiers; the brace list may be empty.
var patternSyntax = regexp.MustCompile(`^(given|shared|leased)\{([^{}]*)\}$`)

var pathSyntax = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ParsePattern parses surface syntax like "given{c}" or
// "shared{a, b.field}". Whitespace around paths is ignored.
func ParsePattern(s string) (Pattern, error) {
	trimmed := strings.TrimSpace(s)
	m := patternSyntax.FindStringSubmatch(trimmed)
	if m == nil {
		return Pattern{}, fmt.Errorf("invalid permission pattern %q: want given{...}, shared{...}, or leased{...}", s)
	}

	pat := Pattern{Family: Family(m[1])}
	body := strings.TrimSpace(m[2])
	if body == "" {
		return pat, nil
	}
	for _, raw := range strings.Split(body, ",") {
		path := strings.TrimSpace(raw)
		if !pathSyntax.MatchString(path) {
			return Pattern{}, fmt.Errorf("invalid path %q in permission pattern %q", path, s)
		}
		pat.Paths = append(pat.Paths, path)
	}
	return pat, nil
}
