package structure

import (
	"path"
	"strings"
)

// MatchGlob matches a slash-separated path against a glob pattern.
// "**" matches any number of whole segments; other segments use path.Match.
func MatchGlob(p, pattern string) bool {
	return matchParts(strings.Split(p, "/"), strings.Split(pattern, "/"))
}

// matchParts recursively matches path segments against pattern segments.
func matchParts(segs, pattern []string) bool {
	if len(pattern) == 0 {
		return len(segs) == 0
	}

	head, rest := pattern[0], pattern[1:]
	if head == "**" {
		if len(rest) == 0 {
			return true
		}
		for i := 0; i <= len(segs); i++ {
			if matchParts(segs[i:], rest) {
				return true
			}
		}
		return false
	}

	if len(segs) == 0 {
		return false
	}
	ok, err := path.Match(head, segs[0])
	if err != nil || !ok {
		return false
	}
	return matchParts(segs[1:], rest)
}
