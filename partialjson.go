package unicall

import "strings"

// closePartialJSON completes a syntactically open JSON prefix by closing any
// unterminated string and balancing open objects and arrays. Streaming
// providers emit tool-call arguments as JSON fragments; closing the prefix
// lets the extraction stage attempt a partial decode after every fragment.
// The result is not guaranteed to decode; callers must treat a decode
// failure as "not yet".
func closePartialJSON(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(trimmed); i++ {
		ch := trimmed[i]
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
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == ch {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(trimmed)
	if inString {
		if escaped {
			// A dangling backslash cannot be closed meaningfully;
			// drop it so the closing quote is not escaped.
			cut := b.String()
			b.Reset()
			b.WriteString(cut[:len(cut)-1])
		}
		b.WriteByte('"')
	}

	// A key without a value cannot be completed; strip back to the last
	// comma or opening brace so the prefix decodes.
	out := strings.TrimRight(b.String(), " \t\n\r")
	out = strings.TrimSuffix(out, ":")
	out = strings.TrimSuffix(out, ",")

	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out, true
}
