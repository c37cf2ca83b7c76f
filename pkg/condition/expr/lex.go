package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case ch == '!':
			if peekByte(input, i+1) == '=' {
				tokens = append(tokens, token{tokNeq, "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{tokNot, "!"})
			i++
		case ch == '=':
			if peekByte(input, i+1) != '=' {
				return nil, fmt.Errorf("expr: unexpected '=' at %d; use '=='", i)
			}
			tokens = append(tokens, token{tokEq, "=="})
			i += 2
		case ch == '<' || ch == '>':
			kind, text := tokLt, "<"
			if ch == '>' {
				kind, text = tokGt, ">"
			}
			if peekByte(input, i+1) == '=' {
				kind++
				text += "="
				i++
			}
			tokens = append(tokens, token{kind, text})
			i++
		case ch == '&' || ch == '|':
			if peekByte(input, i+1) != ch {
				return nil, fmt.Errorf("expr: unexpected %q at %d; use %q", string(ch), i, strings.Repeat(string(ch), 2))
			}
			kind := tokAnd
			if ch == '|' {
				kind = tokOr
			}
			tokens = append(tokens, token{kind, input[i : i+2]})
			i += 2
		case ch == '"' || ch == '\'':
			value, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, value})
			i = next
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}
	return tokens, nil
}

func lexString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start+1 : i]
		if quote == '\'' {
			// strconv.Unquote only accepts single quotes around one rune.
			body = strings.ReplaceAll(body, `\'`, `'`)
			body = strings.ReplaceAll(body, `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("expr: invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, fmt.Errorf("expr: unterminated string literal at %d", start)
}

func classifyWord(word string) token {
	switch strings.ToLower(word) {
	case "true", "false":
		return token{tokBool, strings.ToLower(word)}
	case "null", "nil":
		return token{tokNull, "null"}
	}
	if looksNumeric(word) {
		if _, err := strconv.ParseFloat(word, 64); err == nil {
			return token{tokNumber, word}
		}
	}
	return token{tokIdent, word}
}

func looksNumeric(word string) bool {
	if word == "" {
		return false
	}
	c := word[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '<', '>', '&', '|', '"', '\'':
		return true
	}
	return false
}

func peekByte(input string, i int) byte {
	if i >= len(input) {
		return 0
	}
	return input[i]
}
