package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?i)```(?:json)?")

// ParseModelJSON decodes a language-model response into v. Code-fence markers
// are stripped first; if strict parsing fails, the slice between the first
// '{' and the last '}' is tried before giving up. A parse failure here is a
// stage failure for the whole generation.
func ParseModelJSON(raw string, v interface{}) error {
	cleaned := strings.TrimSpace(codeFenceRe.ReplaceAllString(raw, ""))
	cleaned = strings.TrimSpace(strings.Trim(cleaned, "`"))

	strictErr := json.Unmarshal([]byte(cleaned), v)
	if strictErr == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("model did not return valid JSON: %w", strictErr)
}
