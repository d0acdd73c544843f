package expr

import (
	"strconv"
	"strings"
)

// Path resolves a dotted reference against scope.
//
//   - "input.X[.Y...]", "state.X[.Y...]", "output.X[.Y...]" walk the
//     corresponding map; a missing intermediate or leaf key yields nil, never
//     an error.
//   - A quoted token ("...") returns the literal string, unquoted.
//   - Anything else is parsed as a number, then a boolean (true/false), and
//     otherwise returned unchanged as the raw token (a bareword).
//
// The walk is purely structural (map[string]any / []any / scalars), matching
// the shape encoding/json produces — no reflection is used.
func Path(ref string, scope *Scope) any {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	if isQuoted(ref) {
		return ref[1 : len(ref)-1]
	}

	if root, rest, ok := splitRoot(ref); ok {
		m, _ := scope.root(root)
		return walk(m, rest)
	}

	return literal(ref)
}

// isQuoted reports whether s is wrapped in a matching pair of double quotes.
func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// splitRoot splits "input.a.b" into root="input" and rest="a.b". Returns
// ok=false if ref does not begin with one of the three recognized roots.
func splitRoot(ref string) (root, rest string, ok bool) {
	for _, candidate := range []string{"input", "state", "output"} {
		switch {
		case ref == candidate:
			return candidate, "", true
		case strings.HasPrefix(ref, candidate+"."):
			return candidate, ref[len(candidate)+1:], true
		}
	}
	return "", "", false
}

// walk descends into m following the dot-separated segments of rest,
// returning nil as soon as a segment is missing or the current value is not
// indexable. Segments of the form "name[N]" index into a slice at N after
// resolving "name".
func walk(m map[string]any, rest string) any {
	var current any = m
	if rest == "" {
		return current
	}

	for _, segment := range strings.Split(rest, ".") {
		name, index, hasIndex := splitIndex(segment)

		asMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = asMap[name]
		if !ok {
			return nil
		}

		if hasIndex {
			asSlice, ok := current.([]any)
			if !ok || index < 0 || index >= len(asSlice) {
				return nil
			}
			current = asSlice[index]
		}
	}
	return current
}

// splitIndex splits "items[2]" into name="items", index=2, hasIndex=true.
// Segments without a bracket suffix return hasIndex=false.
func splitIndex(segment string) (name string, index int, hasIndex bool) {
	open := strings.IndexByte(segment, '[')
	if open < 0 || !strings.HasSuffix(segment, "]") {
		return segment, 0, false
	}
	name = segment[:open]
	idxStr := segment[open+1 : len(segment)-1]
	n, err := strconv.Atoi(idxStr)
	if err != nil {
		return segment, 0, false
	}
	return name, n, true
}

// literal parses a bare token as a number, then a boolean, else returns it
// unchanged as a string.
func literal(token string) any {
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return n
	}
	switch token {
	case "true":
		return true
	case "false":
		return false
	}
	return token
}

// Stringify renders a resolved value as its string form for comparison and
// interpolation, matching the predicate evaluator's stringwise semantics.
// nil becomes the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return toJSONString(v)
	}
}
