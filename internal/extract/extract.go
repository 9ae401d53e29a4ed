// Package extract pulls one flat JSON object out of free-form text.
package extract

import (
	"encoding/json"
	"strings"

	"snifferconfig/internal/domain"
)

// NotFoundMessage prefixes every extraction failure.
const NotFoundMessage = "no JSON object found in input"

const fence = "```"

// Object extracts the first decodable JSON object from raw text.
// Params: raw text (bare JSON, fenced code block, or prose around one object) and shared error list.
// Returns: flat map and true; on failure false with at least one message appended.
func Object(raw string, errs *[]string) (domain.FlatMap, bool) {
	text := strings.TrimSpace(raw)
	if body, ok := fenced(text); ok {
		text = body
	}

	var firstErr error
	for offset := 0; offset < len(text); {
		start := strings.IndexByte(text[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		flat, problems, err := domain.DecodeFlatReader(json.NewDecoder(strings.NewReader(text[start:])))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			// Braces nested in a broken candidate belong to it and are never retried.
			end, closed := matchingBrace(text, start)
			if !closed {
				break
			}
			offset = end + 1
			continue
		}
		if len(problems) > 0 {
			*errs = append(*errs, problems...)
			return nil, false
		}
		if len(flat) == 0 {
			*errs = append(*errs, NotFoundMessage+": object is empty")
			return nil, false
		}
		return flat, true
	}

	if firstErr != nil {
		*errs = append(*errs, NotFoundMessage+": "+firstErr.Error())
		return nil, false
	}
	*errs = append(*errs, NotFoundMessage)
	return nil, false
}

// matchingBrace returns the index of the brace closing the one at start.
// Braces inside JSON strings do not count.
func matchingBrace(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// fenced returns the body of the first markdown code block.
func fenced(text string) (string, bool) {
	open := strings.Index(text, fence)
	if open < 0 {
		return "", false
	}
	rest := text[open+len(fence):]
	// Skip the info string ("json") up to the end of the opening line.
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		rest = rest[newline+1:]
	} else {
		return "", false
	}
	end := strings.Index(rest, fence)
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}
