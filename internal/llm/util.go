package llm

import "strings"

// CleanJSONBlock removes a markdown code fence that wraps the whole response.
// It never searches for JSON inside surrounding prose; such responses are left
// as-is so strict decoding rejects them.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}

	body := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	// Skip a language identifier on the fence line.
	if idx := strings.Index(body, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			body = body[idx+1:]
		}
	}
	return strings.TrimSpace(body)
}
