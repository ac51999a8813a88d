package matching

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractPayload strips Markdown decoration from a raw model response and
// returns the text most likely to be the JSON payload. Fallback order: a
// fenced block tagged `json`, then any fenced block, then the raw response.
// The model channel is untyped text, so this is best-effort only; the
// caller decides whether the result actually decodes.
func ExtractPayload(raw string) string {
	raw = strings.TrimSpace(raw)

	if block, ok := fencedBlock(raw, "```json"); ok {
		return block
	}
	if block, ok := fencedBlock(raw, "```"); ok {
		return block
	}

	return raw
}

// fencedBlock returns the content between the first occurrence of the given
// opening fence and the next closing fence.
func fencedBlock(raw, fence string) (string, bool) {
	start := strings.Index(raw, fence)
	if start == -1 {
		return "", false
	}

	rest := raw[start+len(fence):]
	end := strings.Index(rest, "```")
	if end == -1 {
		// Unterminated fence; take everything after the opener.
		return strings.TrimSpace(rest), true
	}

	return strings.TrimSpace(rest[:end]), true
}

// decodeResults decodes the extracted payload into raw result elements. A
// single JSON object is coerced into a one-element list; null or an empty
// payload decodes to zero elements. Anything else that is not a JSON array
// is a parse error.
func decodeResults(payload string) ([]json.RawMessage, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "null" {
		return nil, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &list); err == nil {
		return list, nil
	}

	if strings.HasPrefix(payload, "{") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &obj); err != nil {
			return nil, fmt.Errorf("decode model response object: %w", err)
		}
		return []json.RawMessage{json.RawMessage(payload)}, nil
	}

	return nil, fmt.Errorf("model response is neither a JSON array nor an object")
}
