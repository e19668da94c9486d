package analysis

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokColon
	tokComma
	tokString // quoted literal, Text is the unescaped value
	tokBare   // unquoted run such as a number or an enum name
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokColon:
		return "':'"
	case tokComma:
		return "','"
	case tokString:
		return "string"
	default:
		return "token"
	}
}

type token struct {
	kind   tokenKind
	text   string
	offset int
}

// syntaxError locates a decoding failure in the input.
type syntaxError struct {
	Offset int
	Msg    string
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// lexer splits an immutable input into tokens. pos is the only state.
type lexer struct {
	input []byte
	pos   int
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isBareByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '{', '}', '[', ']', ':', ',', '"':
		return false
	}
	return true
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, offset: start}, nil
	}

	switch c := l.input[l.pos]; c {
	case '{':
		l.pos++
		return token{kind: tokLBrace, offset: start}, nil
	case '}':
		l.pos++
		return token{kind: tokRBrace, offset: start}, nil
	case '[':
		l.pos++
		return token{kind: tokLBracket, offset: start}, nil
	case ']':
		l.pos++
		return token{kind: tokRBracket, offset: start}, nil
	case ':':
		l.pos++
		return token{kind: tokColon, offset: start}, nil
	case ',':
		l.pos++
		return token{kind: tokComma, offset: start}, nil
	case '"':
		s, err := l.quoted()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, offset: start}, nil
	default:
		for l.pos < len(l.input) && isBareByte(l.input[l.pos]) {
			l.pos++
		}
		return token{kind: tokBare, text: string(l.input[start:l.pos]), offset: start}, nil
	}
}

// quoted reads a JSON string literal starting at the opening quote.
func (l *lexer) quoted() (string, error) {
	start := l.pos
	l.pos++ // opening quote

	var b strings.Builder
	for {
		if l.pos >= len(l.input) {
			return "", &syntaxError{Offset: start, Msg: "unterminated string"}
		}
		c := l.input[l.pos]
		switch {
		case c == '"':
			l.pos++
			return b.String(), nil
		case c == '\\':
			if err := l.escape(&b); err != nil {
				return "", err
			}
		case c < 0x20:
			return "", &syntaxError{Offset: l.pos, Msg: "control character in string"}
		default:
			r, size := utf8.DecodeRune(l.input[l.pos:])
			b.WriteRune(r)
			l.pos += size
		}
	}
}

func (l *lexer) escape(b *strings.Builder) error {
	at := l.pos
	if l.pos+1 >= len(l.input) {
		return &syntaxError{Offset: at, Msg: "unterminated escape"}
	}
	c := l.input[l.pos+1]
	l.pos += 2
	switch c {
	case '"', '\\', '/':
		b.WriteByte(c)
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'u':
		r, err := l.hex4(at)
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) {
			if l.pos+1 < len(l.input) && l.input[l.pos] == '\\' && l.input[l.pos+1] == 'u' {
				l.pos += 2
				low, err := l.hex4(at)
				if err != nil {
					return err
				}
				r = utf16.DecodeRune(r, low)
			} else {
				r = utf8.RuneError
			}
		}
		b.WriteRune(r)
	default:
		return &syntaxError{Offset: at, Msg: fmt.Sprintf("invalid escape '\\%c'", c)}
	}
	return nil
}

func (l *lexer) hex4(at int) (rune, error) {
	if l.pos+4 > len(l.input) {
		return 0, &syntaxError{Offset: at, Msg: "short unicode escape"}
	}
	v, err := strconv.ParseUint(string(l.input[l.pos:l.pos+4]), 16, 32)
	if err != nil {
		return 0, &syntaxError{Offset: at, Msg: "invalid unicode escape"}
	}
	l.pos += 4
	return rune(v), nil
}
