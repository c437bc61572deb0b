// Package aijson turns loosely formatted model output into decodable JSON.
package aijson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrEmpty = errors.New("empty model response")

var (
	leadingFence  = regexp.MustCompile("^```(?:json|JSON)?[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?```$")
)

// Clean strips code fences, cuts trailing garbage after the last closing
// delimiter and closes any brackets left open by a truncated response.
func Clean(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return "{}"
	}

	if strings.HasPrefix(cleaned, "```") {
		cleaned = leadingFence.ReplaceAllString(cleaned, "")
		cleaned = trailingFence.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)
	}

	if !strings.HasSuffix(cleaned, "}") && !strings.HasSuffix(cleaned, "]") {
		last := strings.LastIndexAny(cleaned, "}]")
		if last != -1 {
			cleaned = cleaned[:last+1]
		}
	}

	return strings.TrimSpace(balance(cleaned))
}

// Decode cleans text and unmarshals it into v.
func Decode(text string, v any) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}
	cleaned := Clean(text)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("decode model json: %w", err)
	}
	return nil
}

func balance(s string) string {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == c {
				stack = stack[:n-1]
			}
		}
	}

	if !inString && len(stack) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(stack) + 1)
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}

	out := strings.TrimRight(b.String(), " \t\r\n,:")
	b.Reset()
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
