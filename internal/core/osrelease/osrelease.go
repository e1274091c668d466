// Package osrelease parses os-release identity data.
// This is part of the Functional Core - pure functions, no I/O.
package osrelease

import (
	"strings"
)

// Info holds the fields of an os-release file that matter for preflight.
type Info struct {
	ID         string // e.g. "ubuntu"
	VersionID  string // e.g. "20.04"
	PrettyName string // e.g. "Ubuntu 20.04.6 LTS"
}

// Parse parses the content of an os-release file (key=value lines).
// Values may be quoted with single or double quotes. Unknown keys and
// malformed lines are ignored.
func Parse(content string) Info {
	var info Info

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		value = unquote(strings.TrimSpace(value))

		switch strings.TrimSpace(key) {
		case "ID":
			info.ID = value
		case "VERSION_ID":
			info.VersionID = value
		case "PRETTY_NAME":
			info.PrettyName = value
		}
	}

	return info
}

// Matches reports whether the distribution identity matches the target.
// The comparison is a case-insensitive substring match on the ID field,
// so "Ubuntu" matches both "ubuntu" and derivatives that embed it.
func (i Info) Matches(target string) bool {
	if target == "" || i.ID == "" {
		return false
	}
	return strings.Contains(strings.ToLower(i.ID), strings.ToLower(target))
}

// unquote strips a single layer of matching quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
