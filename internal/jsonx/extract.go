// Package jsonx extracts JSON embedded in generative-model prose.
package jsonx

// FirstObject returns the first balanced {...} span in raw. Model responses
// routinely wrap the requested JSON in prose or markdown fences, so scanning
// is lexical: string literals and escapes are honored, everything outside the
// span is ignored. Returns ok=false when raw contains no balanced object.
func FirstObject(raw string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
