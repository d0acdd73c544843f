package expr

import "strings"

// Interpolate rewrites a template string by substituting every ${path}
// placeholder through Path, converting nil results to the empty string. An
// unmatched "${" (no closing brace) terminates scanning: the literal text
// from that point onward, including the unmatched "${", is dropped from the
// output, matching the "stops scanning" rule rather than echoing raw braces.
func Interpolate(template string, scope *Scope) string {
	var out strings.Builder
	rest := template

	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			out.WriteString(rest)
			return out.String()
		}

		out.WriteString(rest[:start])

		end := strings.IndexByte(rest[start+2:], '}')
		if end < 0 {
			return out.String()
		}
		end += start + 2

		path := rest[start+2 : end]
		out.WriteString(Stringify(Path(path, scope)))

		rest = rest[end+1:]
	}
}
