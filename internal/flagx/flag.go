// Package flagx holds small helpers for layering command-line flags over
// other configuration sources.
package flagx

import (
	"flag"
	"strings"
)

// Visited reports the names of flags that were explicitly set on the command
// line. Flags left at their defaults are absent, so callers can apply only the
// values the user actually supplied on top of file and environment settings.
func Visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// AnyVisited reports whether at least one of names was set explicitly.
func AnyVisited(visited map[string]bool, names ...string) bool {
	for _, n := range names {
		if visited[n] {
			return true
		}
	}
	return false
}

// SplitList splits a comma-separated value, trimming blanks and dropping
// empty items. An empty input yields nil.
//
//	SplitList(" a, b,,c ") // []string{"a", "b", "c"}
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
