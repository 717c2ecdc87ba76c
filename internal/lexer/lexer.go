// Package lexer scans MiniC source text into a stream of tokens.
package lexer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/minic-lang/minicc/internal/token"
)

// Errors reported by the lexer. These are part of the fixed lex/parse
// diagnostic taxonomy.
var (
	ErrUnterminatedComment = errors.New("unterminated comment")
	ErrUnexpectedChar      = errors.New("unexpected character")
)

// Lexer scans a MiniC source string into token.Token values on demand.
//
// Grounded on original_source/src/lexer.cpp's single-character dispatch,
// rewritten using a keyword map instead of a hand-rolled trie walk.
type Lexer struct {
	src  string
	pos  int
	peek *token.Token
}

// New returns a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src}
}

func (l *Lexer) at(i int) byte {
	if l.pos+i >= len(l.src) {
		return 0
	}
	return l.src[l.pos+i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (token.Token, error) {
	if l.peek == nil {
		tok, err := l.scan()
		if err != nil {
			return token.Token{}, err
		}
		l.peek = &tok
	}
	return *l.peek, nil
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (token.Token, error) {
	if l.peek != nil {
		tok := *l.peek
		l.peek = nil
		return tok, nil
	}
	return l.scan()
}

// scan skips whitespace and comments, then lexes exactly one token.
func (l *Lexer) scan() (token.Token, error) {
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			return token.Token{Kind: token.EOF}, nil
		}
		if l.at(0) == '/' && l.at(1) == '/' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		if l.at(0) == '/' && l.at(1) == '*' {
			l.pos += 2
			closed := false
			for l.pos < len(l.src) {
				if l.at(0) == '*' && l.at(1) == '/' {
					l.pos += 2
					closed = true
					break
				}
				l.pos++
			}
			if !closed {
				return token.Token{}, ErrUnterminatedComment
			}
			continue
		}
		break
	}
	return l.lexToken()
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) lexToken() (token.Token, error) {
	c := l.at(0)
	switch {
	case isAlpha(c):
		start := l.pos
		for l.pos < len(l.src) && (isAlpha(l.src[l.pos]) || isDigit(l.src[l.pos])) {
			l.pos++
		}
		word := l.src[start:l.pos]
		if kw, ok := token.Keywords[word]; ok {
			return token.Token{Kind: kw}, nil
		}
		return token.Token{Kind: token.Ident, Ident: word}, nil
	case isDigit(c):
		start := l.pos
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		n, err := strconv.ParseInt(l.src[start:l.pos], 10, 64)
		if err != nil {
			return token.Token{}, fmt.Errorf("invalid number literal %q", l.src[start:l.pos])
		}
		return token.Token{Kind: token.Number, Number: int32(n)}, nil
	}

	two := l.src[l.pos:min(l.pos+2, len(l.src))]
	switch {
	case strings.HasPrefix(two, "=="):
		l.pos += 2
		return token.Token{Kind: token.Eq}, nil
	case strings.HasPrefix(two, "!="):
		l.pos += 2
		return token.Token{Kind: token.NotEq}, nil
	case strings.HasPrefix(two, "<="):
		l.pos += 2
		return token.Token{Kind: token.LtEq}, nil
	case strings.HasPrefix(two, ">="):
		l.pos += 2
		return token.Token{Kind: token.GtEq}, nil
	case strings.HasPrefix(two, "&&"):
		l.pos += 2
		return token.Token{Kind: token.AndAnd}, nil
	case strings.HasPrefix(two, "||"):
		l.pos += 2
		return token.Token{Kind: token.OrOr}, nil
	}

	l.pos++
	switch c {
	case '=':
		return token.Token{Kind: token.Assign}, nil
	case ';':
		return token.Token{Kind: token.Semicolon}, nil
	case ',':
		return token.Token{Kind: token.Comma}, nil
	case '(':
		return token.Token{Kind: token.LParen}, nil
	case ')':
		return token.Token{Kind: token.RParen}, nil
	case '{':
		return token.Token{Kind: token.LBrace}, nil
	case '}':
		return token.Token{Kind: token.RBrace}, nil
	case '+':
		return token.Token{Kind: token.Plus}, nil
	case '-':
		return token.Token{Kind: token.Minus}, nil
	case '*':
		return token.Token{Kind: token.Star}, nil
	case '/':
		return token.Token{Kind: token.Slash}, nil
	case '%':
		return token.Token{Kind: token.Percent}, nil
	case '<':
		return token.Token{Kind: token.Lt}, nil
	case '>':
		return token.Token{Kind: token.Gt}, nil
	case '!':
		return token.Token{Kind: token.Not}, nil
	default:
		return token.Token{}, fmt.Errorf("%w: %q", ErrUnexpectedChar, c)
	}
}

