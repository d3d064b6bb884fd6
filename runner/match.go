package runner

import (
	"regexp"
	"strings"
)

// matchesName reports whether a test name matches pat, per spec.md
// §6: "a pattern matches a test if it matches the whole name, or the
// name truncated at any '/' boundary (with or without the trailing
// slash)."
func matchesName(pat *regexp.Regexp, name string) bool {
	if pat.MatchString(name) {
		return true
	}
	for i := 0; i < len(name); i++ {
		if name[i] != '/' {
			continue
		}
		if pat.MatchString(name[:i]) || pat.MatchString(name[:i+1]) {
			return true
		}
	}
	return false
}

// splitIncludeDirective implements the "//" redirect named in spec.md
// §6's --include row: "A '//' inside the pattern redirects the tail
// to --generate." raw is one -i/-e argument; if it contains "//", the
// part before it is the actual include/exclude pattern and the whole
// original string is also a valid --generate argument (PAT//PROG),
// since that is already the format -g expects.
func splitIncludeDirective(raw string) (pattern string, generateArg string, hasGenerate bool) {
	idx := strings.Index(raw, "//")
	if idx < 0 {
		return raw, "", false
	}
	return raw[:idx], raw, true
}
