package core

// Identifiers returns the distinct identifiers in an expression in
// order of first appearance.
//
// Identifiers that follow a "." (property accesses) and anything in
// a quoted string are skipped, so "hand.x + handle" gives "hand" and
// "handle" but not "x".  Whole identifiers are matched: a signal
// named "hand" is not a dependency of "handle * 2".
func Identifiers(expr string) []string {
	var (
		acc  []string
		seen = make(map[string]bool)
		n    = len(expr)
	)
	isStart := func(c byte) bool {
		return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
	}
	isPart := func(c byte) bool {
		return isStart(c) || ('0' <= c && c <= '9')
	}

	for i := 0; i < n; {
		c := expr[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			j := i + 1
			for j < n && expr[j] != c {
				if expr[j] == '\\' {
					j++
				}
				j++
			}
			i = j + 1
		case '0' <= c && c <= '9':
			j := i
			for j < n && (isPart(expr[j]) || expr[j] == '.') {
				j++
			}
			i = j
		case isStart(c):
			j := i
			for j < n && isPart(expr[j]) {
				j++
			}
			word := expr[i:j]
			k := i - 1
			for 0 <= k && (expr[k] == ' ' || expr[k] == '\t') {
				k--
			}
			member := 0 <= k && expr[k] == '.'
			if !member && !seen[word] {
				seen[word] = true
				acc = append(acc, word)
			}
			i = j
		default:
			i++
		}
	}
	return acc
}
