// Package scan is a lexical scanner shared by the in-process engines whose
// interpreters do not expose their own tokenizer.
package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/scanner"
)

// Token is one lexical token as reported to the user.
type Token struct {
	Type    string `json:"Type"`
	Literal string `json:"Literal"`
	Line    int    `json:"Line"`
	Column  int    `json:"Column"`
}

// Token types for non-operator tokens. Operators and delimiters use their literal
// as their type; keywords use their upper-cased literal.
const (
	Ident   = "IDENT"
	Int     = "INT"
	Float   = "FLOAT"
	String  = "STRING"
	Illegal = "ILLEGAL"
	EOF     = "EOF"
)

// twoCharOps are operators scanned as a single token.
var twoCharOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true, "&&": true, "||": true,
	"=>": true, "->": true, "+=": true, "-=": true, "*=": true, "/=": true,
	"**": true, "//": true, ":=": true, "++": true, "--": true,
}

// Tokens scans src. Comments are // and /* */, or # when hashComments is set. Identifiers listed in keywords are reported as keywords.
// Scanning stops at the first illegal token, which is included in the result.
func Tokens(src string, keywords map[string]bool, hashComments bool) []Token {
	if hashComments {
		src = stripHashComments(src)
	}

	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanRawStrings
	if !hashComments {
		s.Mode |= scanner.ScanComments | scanner.SkipComments
	}

	var illegal string
	s.Error = func(_ *scanner.Scanner, msg string) { illegal = msg }

	var out []Token
	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		pos := s.Position
		text := s.TokenText()
		t := Token{Literal: text, Line: pos.Line, Column: pos.Column}

		switch tok {
		case scanner.Ident:
			t.Type = Ident
			if keywords[text] {
				t.Type = strings.ToUpper(text)
			}
		case scanner.Int:
			t.Type = Int
		case scanner.Float:
			t.Type = Float
		case scanner.String, scanner.RawString:
			t.Type = String
		default:
			if next := s.Peek(); next != scanner.EOF && twoCharOps[text+string(next)] {
				s.Next()
				t.Literal = text + string(next)
			}
			t.Type = t.Literal
		}

		if illegal != "" {
			t.Type = Illegal
			out = append(out, t)
			return out
		}
		out = append(out, t)
	}
	return append(out, Token{Type: EOF})
}

// JSON renders tokens as a tab indented JSON array.
func JSON(tokens []Token) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tokens); err != nil {
		return "", fmt.Errorf("encoding tokens: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// stripHashComments blanks # comments outside string literals, keeping offsets.
func stripHashComments(src string) string {
	b := []byte(src)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote || c == '\n' {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			for ; i < len(b) && b[i] != '\n'; i++ {
				b[i] = ' '
			}
		}
	}
	return string(b)
}
