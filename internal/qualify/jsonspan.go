package qualify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrNoObject is returned by DecodeObject when the text holds no {...} span.
var ErrNoObject = errors.New("no JSON object in output")

// ObjectSpan returns the text from the first '{' to the last '}' after any
// code-fence markers are removed. ok is false when either brace is missing
// or they are out of order.
func ObjectSpan(raw string) (span string, ok bool) {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// DecodeObject locates the object span in raw and decodes it into v.
func DecodeObject(raw string, v any) error {
	span, ok := ObjectSpan(raw)
	if !ok {
		return ErrNoObject
	}
	if err := sonic.UnmarshalString(span, v); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	return nil
}
