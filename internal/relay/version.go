package relay

import (
	"regexp"
	"strconv"
	"strings"
)

var releaseNameVersion = regexp.MustCompile(`(?i)(?:v)?(\d+\.\d+(?:\.\d+)?)`)

// ExtractVersion picks a version from release metadata. The tag wins when
// it looks like a version after stripping a leading "v"; otherwise the
// first major.minor[.patch] in the release name is used. It returns ""
// when neither yields one.
func ExtractVersion(tag, name string) string {
	t := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "v"))
	if strings.ContainsAny(t, "0123456789") && strings.Contains(t, ".") {
		return t
	}
	if m := releaseNameVersion.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return ""
}

// IsNewer compares dotted numeric versions component by component, padding
// the shorter one with zeros. Any non-numeric component makes it false.
func IsNewer(latest, current string) bool {
	l, ok := parseVersion(latest)
	if !ok {
		return false
	}
	c, ok := parseVersion(current)
	if !ok {
		return false
	}
	for i := 0; i < max(len(l), len(c)); i++ {
		var a, b int
		if i < len(l) {
			a = l[i]
		}
		if i < len(c) {
			b = c[i]
		}
		if a != b {
			return a > b
		}
	}
	return false
}

func parseVersion(v string) ([]int, bool) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
