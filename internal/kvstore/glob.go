package kvstore

import "strings"

// EscapeGlob escapes the glob metacharacters in s so that it matches itself literally.
func EscapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MatchGlob reports whether s matches the Redis-style glob pattern.
func MatchGlob(pattern, s string) bool {
	p := []rune(pattern)
	str := []rune(s)
	return matchRunes(p, str)
}

func matchRunes(p, s []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 1 && p[1] == '*' {
				p = p[1:]
			}
			if len(p) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchRunes(p[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			s = s[1:]
			p = p[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			rest, ok := matchClass(p[1:], s[0])
			if !ok {
				return false
			}
			p = rest
			s = s[1:]
		case '\\':
			if len(p) >= 2 {
				p = p[1:]
			}
			fallthrough
		default:
			if len(s) == 0 || p[0] != s[0] {
				return false
			}
			s = s[1:]
			p = p[1:]
		}
	}
	return len(s) == 0
}

// matchClass matches c against the class starting after '[' and returns the
// pattern remaining after the closing ']'.
func matchClass(p []rune, c rune) ([]rune, bool) {
	negate := false
	if len(p) > 0 && p[0] == '^' {
		negate = true
		p = p[1:]
	}
	matched := false
	for len(p) > 0 && p[0] != ']' {
		switch {
		case p[0] == '\\' && len(p) >= 2:
			if p[1] == c {
				matched = true
			}
			p = p[2:]
		case len(p) >= 3 && p[1] == '-' && p[2] != ']':
			lo, hi := p[0], p[2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			p = p[3:]
		default:
			if p[0] == c {
				matched = true
			}
			p = p[1:]
		}
	}
	if len(p) > 0 {
		p = p[1:] // closing ']'
	}
	if negate {
		matched = !matched
	}
	return p, matched
}

// likePattern converts a glob into a SQL LIKE pattern using '\' as the escape
// character. Character classes become '_', so LIKE results are a superset and
// must be filtered with MatchGlob.
func likePattern(pattern string) string {
	var b strings.Builder
	p := []rune(pattern)
	for i := 0; i < len(p); i++ {
		switch r := p[i]; r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '[':
			for i < len(p) && p[i] != ']' {
				if p[i] == '\\' {
					i++
				}
				i++
			}
			b.WriteByte('_')
		case '\\':
			if i+1 < len(p) {
				i++
			}
			writeLikeLiteral(&b, p[i])
		default:
			writeLikeLiteral(&b, r)
		}
	}
	return b.String()
}

func writeLikeLiteral(b *strings.Builder, r rune) {
	if r == '%' || r == '_' || r == '\\' {
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}

// filterKeys keeps the keys matching pattern.
func filterKeys(keys []string, pattern string) []string {
	out := keys[:0]
	for _, k := range keys {
		if MatchGlob(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}
