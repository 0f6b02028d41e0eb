package extractprofile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	apperrors "shopassist/internal/common/errors"
)

// spanPattern matches the first brace-delimited span with no nested braces.
var spanPattern = regexp.MustCompile(`\{[^{}]+\}`)

var spaceRun = regexp.MustCompile(`\s+`)

// parse locates the structured span in text and returns its key/value pairs
// keyed by normalized key. Later duplicates win.
func parse(text string) (map[string]string, error) {
	span := spanPattern.FindString(text)
	if span == "" {
		return nil, apperrors.NewMalformedProfileError("", "no structured span found")
	}
	span = strings.ToLower(span)
	body := span[1 : len(span)-1]

	fields := make(map[string]string)
	i := 0
	for {
		i = skipSpace(body, i)
		if i >= len(body) {
			break
		}

		rawKey, next, err := readToken(body, i, ':')
		if err != nil {
			return nil, apperrors.NewMalformedProfileError("", err.Error())
		}
		key := normalizeKey(rawKey)
		if key == "" {
			return nil, apperrors.NewMalformedProfileError("", "empty key")
		}

		i = skipSpace(body, next)
		if i >= len(body) || body[i] != ':' {
			return nil, apperrors.NewMalformedProfileError(key, "expected ':' after key")
		}
		i = skipSpace(body, i+1)

		value, next, err := readToken(body, i, ',')
		if err != nil {
			return nil, apperrors.NewMalformedProfileError(key, err.Error())
		}
		fields[key] = strings.TrimSpace(value)

		i = skipSpace(body, next)
		if i < len(body) {
			if body[i] != ',' {
				return nil, apperrors.NewMalformedProfileError(key, "expected ',' between pairs")
			}
			i++
		}
	}

	if len(fields) == 0 {
		return nil, apperrors.NewMalformedProfileError("", "structured span has no pairs")
	}
	return fields, nil
}

// readToken reads a single- or double-quoted token, or a bare token ending
// at stop. In bare values a comma that sits between a digit and a group of
// two or three digits is kept as a digit-group separator.
func readToken(s string, i int, stop byte) (string, int, error) {
	if i >= len(s) {
		return "", i, errors.New("unexpected end of span")
	}

	if q := s[i]; q == '\'' || q == '"' {
		end := strings.IndexByte(s[i+1:], q)
		if end < 0 {
			return "", i, fmt.Errorf("unterminated %c quote", q)
		}
		return s[i+1 : i+1+end], i + 2 + end, nil
	}

	j := i
	for j < len(s) {
		if s[j] == stop {
			if stop == ',' && isGroupSeparator(s, j) {
				j++
				continue
			}
			break
		}
		if stop == ',' && s[j] == ':' {
			return "", j, errors.New("unexpected ':' in value")
		}
		j++
	}

	tok := strings.TrimSpace(s[i:j])
	if tok == "" {
		return "", j, errors.New("empty token")
	}
	return tok, j, nil
}

func isGroupSeparator(s string, j int) bool {
	if j == 0 || !isDigit(s[j-1]) {
		return false
	}
	k := j + 1
	for k < len(s) && isDigit(s[k]) {
		k++
	}
	n := k - (j + 1)
	return n == 2 || n == 3
}

func normalizeKey(k string) string {
	k = strings.ReplaceAll(k, "_", " ")
	return spaceRun.ReplaceAllString(strings.TrimSpace(k), " ")
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
