package assembler

import (
	"fmt"
	"strconv"
	"strings"
)

var charEscapes = map[byte]byte{
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'e':  0x1b,
}

// parseInt recognizes decimal, 0x/0o/0b-prefixed, and 'c' char-literal
// integers. ok is false if tok is not an integer literal at all (as
// opposed to being one that is simply out of range, which parseInt still
// reports ok=true for so the caller can raise a range diagnostic with the
// right message).
func parseInt(tok string) (value int64, ok bool, outOfRange bool) {
	if len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'' {
		body := tok[1 : len(tok)-1]
		c, rest, err := parseCharLiteral(body)
		if err != nil || rest != "" {
			return 0, false, false
		}
		return int64(c), true, false
	}

	neg := false
	rest := tok
	if strings.HasPrefix(rest, "-") {
		neg = true
		rest = rest[1:]
	}

	var base int
	switch {
	case strings.HasPrefix(rest, "0x"), strings.HasPrefix(rest, "0X"):
		base, rest = 16, rest[2:]
	case strings.HasPrefix(rest, "0o"), strings.HasPrefix(rest, "0O"):
		base, rest = 8, rest[2:]
	case strings.HasPrefix(rest, "0b"), strings.HasPrefix(rest, "0B"):
		base, rest = 2, rest[2:]
	default:
		base = 10
	}
	if rest == "" {
		return 0, false, false
	}

	parsed, err := strconv.ParseUint(rest, base, 64)
	if err != nil {
		if numErr, is := err.(*strconv.NumError); is && numErr.Err == strconv.ErrRange {
			return 0, true, true
		}
		return 0, false, false
	}

	v := int64(parsed)
	if neg {
		v = -v
	}
	return v, true, false
}

// parseCharLiteral decodes the body of a 'c' literal (without the quotes),
// handling the standard C escape set, and returns the decoded byte plus any
// unconsumed remainder (always empty for a well-formed literal).
func parseCharLiteral(body string) (byte, string, error) {
	if len(body) == 0 {
		return 0, "", fmt.Errorf("empty char literal")
	}
	if body[0] != '\\' {
		return body[0], body[1:], nil
	}
	if len(body) < 2 {
		return 0, "", fmt.Errorf("unterminated escape")
	}
	c, ok := charEscapes[body[1]]
	if !ok {
		return 0, "", fmt.Errorf("unknown escape \\%c", body[1])
	}
	return c, body[2:], nil
}

// unescapeString decodes a double-quoted string literal's body (without
// the surrounding quotes), honoring the same escapes as parseCharLiteral.
func unescapeString(body string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			b.WriteByte(body[i])
			continue
		}
		if i+1 >= len(body) {
			return "", fmt.Errorf("unterminated escape")
		}
		c, ok := charEscapes[body[i+1]]
		if !ok {
			return "", fmt.Errorf("unknown escape \\%c", body[i+1])
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}
