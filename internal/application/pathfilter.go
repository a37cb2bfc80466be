package application

import (
	"regexp"
	"strings"
)

// PathFilter holds case-sensitive substring patterns. An empty filter accepts everything.
type PathFilter []string

// ParsePathFilter splits a comma-separated pattern list, dropping blank entries.
func ParsePathFilter(s string) PathFilter {
	var f PathFilter
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			f = append(f, p)
		}
	}
	return f
}

func (f PathFilter) Matches(paths []string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		for _, pattern := range f {
			if strings.Contains(p, pattern) {
				return true
			}
		}
	}
	return false
}

var mergedPRPattern = regexp.MustCompile(`(?i)Merged PR (\d+)`)

// ParseMergedPR extracts the pull request number from a "Merged PR <n>" commit message.
func ParseMergedPR(message string) (string, bool) {
	m := mergedPRPattern.FindStringSubmatch(message)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
