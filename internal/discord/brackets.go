package discord

import "strings"

// ExtractQueries returns the trimmed contents of up to limit [[...]] brackets
// in content, in order of appearance. Empty brackets and duplicates
// (compared case-insensitively) are skipped. Text inside `inline code` or
// ```code blocks``` is ignored.
func ExtractQueries(content string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	content = stripCode(content)

	var out []string
	seen := make(map[string]bool)
	for len(out) < limit {
		start := strings.Index(content, "[[")
		if start < 0 {
			break
		}
		content = content[start+2:]
		end := strings.Index(content, "]]")
		if end < 0 {
			break
		}
		q := strings.TrimSpace(content[:end])
		content = content[end+2:]
		if q == "" || strings.Contains(q, "[[") {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

// stripCode blanks out code spans so brackets inside them are not queries.
func stripCode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for {
		fence := "`"
		i := strings.Index(s, "`")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		if strings.HasPrefix(s[i:], "```") {
			fence = "```"
		}
		b.WriteString(s[:i])
		rest := s[i+len(fence):]
		j := strings.Index(rest, fence)
		if j < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		b.WriteByte(' ')
		s = rest[j+len(fence):]
	}
}
