package usecase

import (
	"encoding/json"
	"strings"

	"github.com/foodlens/backend/internal/domain"
)

// The model is expected to return one JSON object or array but in practice
// wraps it in prose, fences it, or truncates it mid-token when it runs out
// of output budget. Extraction tries three strategies in order: a direct
// parse of the fence-stripped text, a parse of the first balanced bracketed
// span, and a parse of the truncation-repaired tail. If all three fail the
// caller gets ErrNoJSONFound and must not guess at partial data.

// ExtractObject recovers a JSON object from free-form model text into v.
func ExtractObject(raw string, v interface{}) error {
	return extractValue(raw, '{', v)
}

// ExtractArray recovers a JSON array from free-form model text into v.
// When the model wraps the array in an object instead, the fallbackKeys are
// tried in order for an array-valued member.
func ExtractArray(raw string, v interface{}, fallbackKeys ...string) error {
	if err := extractValue(raw, '[', v); err == nil {
		return nil
	}

	// The array may be nested under a wrapper object.
	var wrapper map[string]json.RawMessage
	if err := extractValue(raw, '{', &wrapper); err != nil {
		return err
	}
	for _, key := range fallbackKeys {
		inner, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, v); err == nil {
			return nil
		}
	}
	return domain.ErrNoJSONFound
}

func extractValue(raw string, open byte, v interface{}) error {
	text := stripFences(raw)

	// Strategy 1: direct parse.
	if strings.HasPrefix(text, string(open)) {
		if err := json.Unmarshal([]byte(text), v); err == nil {
			return nil
		}
	}

	start := strings.IndexByte(text, open)
	if start < 0 {
		return domain.ErrNoJSONFound
	}
	tail := text[start:]

	// Strategy 2: first balanced bracketed span.
	if span, ok := balancedSpan(tail); ok {
		if err := json.Unmarshal([]byte(span), v); err == nil {
			return nil
		}
	}

	// Strategy 3: truncation repair.
	if repaired, ok := repairTruncated(tail); ok {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	return domain.ErrNoJSONFound
}

// stripFences removes common markdown code-fence markers and surrounding
// whitespace.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	for _, marker := range []string{"```json", "```JSON", "```"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	return strings.TrimSpace(text)
}

// bracketScanner is a single forward-pass state machine over possibly
// truncated JSON. It tracks nesting via an explicit stack plus string and
// escape state; the input is untrusted so nothing here recurses.
type bracketScanner struct {
	stack    []byte
	inString bool
	escaped  bool
}

// step consumes one byte and reports whether the scanner has returned to
// depth zero after having been inside a value.
func (sc *bracketScanner) step(b byte) (balanced bool) {
	if sc.inString {
		switch {
		case sc.escaped:
			sc.escaped = false
		case b == '\\':
			sc.escaped = true
		case b == '"':
			sc.inString = false
		}
		return false
	}

	switch b {
	case '"':
		sc.inString = true
	case '{', '[':
		sc.stack = append(sc.stack, b)
	case '}', ']':
		if len(sc.stack) > 0 {
			sc.stack = sc.stack[:len(sc.stack)-1]
		}
		return len(sc.stack) == 0
	}
	return false
}

// balancedSpan returns the prefix of text that forms the first balanced
// bracketed value, if one is closed within the text. text must start at an
// opening bracket.
func balancedSpan(text string) (string, bool) {
	var sc bracketScanner
	for i := 0; i < len(text); i++ {
		if sc.step(text[i]) {
			return text[:i+1], true
		}
	}
	return "", false
}

// repairTruncated closes a JSON value cut off mid-token: it terminates an
// open string literal, strips a trailing comma, then appends the closing
// bracket for every unclosed container in depth order.
func repairTruncated(text string) (string, bool) {
	var sc bracketScanner
	for i := 0; i < len(text); i++ {
		sc.step(text[i])
	}
	if len(sc.stack) == 0 {
		return "", false
	}

	repaired := text
	if sc.inString {
		if sc.escaped {
			// Drop a dangling backslash before closing the string.
			repaired = repaired[:len(repaired)-1]
		}
		repaired += `"`
	}

	trimmed := strings.TrimRight(repaired, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ",")

	var closers strings.Builder
	for i := len(sc.stack) - 1; i >= 0; i-- {
		switch sc.stack[i] {
		case '{':
			closers.WriteByte('}')
		case '[':
			closers.WriteByte(']')
		}
	}

	return trimmed + closers.String(), true
}
