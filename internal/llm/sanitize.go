package llm

import "strings"

// ExtractJSON recovers a best-effort JSON substring from free-form model
// output: conversational wrapping, fenced code blocks and trailing prose are
// stripped, nothing is validated. When no brace or bracket is present the
// text passes through unchanged and the caller's parse is expected to fail.
func ExtractJSON(text string) string {
	out := strings.TrimSpace(text)

	if strings.HasPrefix(out, "```") {
		out = out[3:]
		// Drop an optional language tag such as "json" on the fence line.
		if idx := strings.IndexByte(out, '\n'); idx >= 0 {
			out = out[idx+1:]
		}
		if end := strings.LastIndex(out, "```"); end >= 0 {
			out = out[:end]
		}
		out = strings.TrimSpace(out)
	}

	objStart := strings.IndexByte(out, '{')
	arrStart := strings.IndexByte(out, '[')
	start := objStart
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
	}
	if start > 0 {
		out = out[start:]
	}

	objEnd := strings.LastIndexByte(out, '}')
	arrEnd := strings.LastIndexByte(out, ']')
	end := objEnd
	if arrEnd > end {
		end = arrEnd
	}
	if end >= 0 && end < len(out)-1 {
		out = out[:end+1]
	}

	return out
}
