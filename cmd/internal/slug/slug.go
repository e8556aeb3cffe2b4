// Package slug derives the public URL key of a post from its title.
package slug

import (
	"regexp"
	"strings"
)

// space is the set of characters treated as whitespace in titles. RE2's \s is
// ASCII only, so vertical tab, Unicode space separators, line and paragraph
// separators and the BOM are listed explicitly.
const space = `\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	// disallowed matches anything other than word characters, whitespace and hyphens
	disallowed = regexp.MustCompile(`[^\w` + space + `-]`)
	whitespace = regexp.MustCompile(`[` + space + `]+`)
)

// Derive lowercases title, drops characters that are not word characters, whitespace
// or hyphens, and replaces each run of whitespace with a single hyphen.
// The result is never truncated or suffixed; collisions are rejected by callers.
func Derive(title string) string {
	s := strings.ToLower(title)
	s = disallowed.ReplaceAllString(s, "")
	return whitespace.ReplaceAllString(s, "-")
}
