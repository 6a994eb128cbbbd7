package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// maxDecisionLen guards against pathological routing responses; the expected
// payload is a one-field JSON object.
const maxDecisionLen = 4 * 1024

// rawDecision mirrors the schema the supervisor model is constrained to.
type rawDecision struct {
	AgentName string `json:"agent_name"`
}

// ParseSupervisorDecision strictly decodes the routing model's output into
// the agent label it named. The content must be a single JSON object with an
// agent_name field; anything else is a contract violation and returns an
// error. Validation of the label against the closed agent set is the
// caller's concern (unknown labels fall back, malformed output fails).
func ParseSupervisorDecision(content string) (string, error) {
	_, content = SplitThinking(content)
	content = strings.TrimSpace(content)
	content = stripCodeFence(content)

	if content == "" {
		return "", fmt.Errorf("empty supervisor output")
	}
	if len(content) > maxDecisionLen {
		return "", fmt.Errorf("supervisor output too large (%d bytes)", len(content))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()

	var raw rawDecision
	if err := dec.Decode(&raw); err != nil {
		return "", fmt.Errorf("decode supervisor output: %w", err)
	}
	// Reject trailing JSON values after the decision object.
	if dec.More() {
		return "", fmt.Errorf("unexpected trailing content in supervisor output")
	}
	if strings.TrimSpace(raw.AgentName) == "" {
		return "", fmt.Errorf("supervisor output missing agent_name")
	}
	return raw.AgentName, nil
}

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// SplitThinking separates a model's delimited thinking block from the
// user-visible answer. The first <think>...</think> block is extracted and
// stripped; content without the delimiters is returned unchanged. An opening
// tag without a closing tag treats the remainder as thinking.
func SplitThinking(content string) (thinking, answer string) {
	start := strings.Index(content, thinkOpen)
	if start < 0 {
		return "", content
	}
	rest := content[start+len(thinkOpen):]
	end := strings.Index(rest, thinkClose)
	if end < 0 {
		return strings.TrimSpace(rest), strings.TrimSpace(content[:start])
	}
	thinking = strings.TrimSpace(rest[:end])
	answer = strings.TrimSpace(content[:start] + rest[end+len(thinkClose):])
	return thinking, answer
}

// stripCodeFence unwraps a ```json ... ``` (or plain ```) fenced block, which
// some models emit around structured output despite schema constraints.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language hint line (e.g. "json")
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
