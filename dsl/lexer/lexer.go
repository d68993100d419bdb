// Package lexer tokenizes .prtcl source text for dsl/parser.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/prtcl-go/prtcl/dsl/ast"
)

// Kind identifies a token's lexical class.
type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	Keyword
	Punct
)

// Token is one lexed unit: its Text is the exact source slice (an
// identifier's name, a number's digits, a keyword or punctuation's
// literal spelling).
type Token struct {
	Kind Kind
	Text string
	Loc  ast.SourceLoc
}

var keywords = map[string]bool{
	"version": true, "scheme": true, "groups": true, "global": true,
	"select": true, "uniform": true, "varying": true, "field": true,
	"real": true, "integer": true, "boolean": true,
	"and": true, "or": true, "not": true, "type": true, "tag": true,
	"procedure": true, "compute": true, "reduce": true, "local": true,
	"foreach": true, "particle": true, "neighbor": true,
	"solve": true, "over": true, "setup": true, "product": true,
	"apply": true, "into": true, "with": true, "iterate": true,
	"right_hand_side": true, "guess": true, "system": true,
	"preconditioner": true,
}

// punctuation tokens, longest-match first.
var puncts = []string{
	"+=", "-=", "*=", "/=", "max=", "min=",
	"==",
	"{", "}", "(", ")", "[", "]", "<", ">",
	";", ":", ",", ".", "=", "+", "-", "*", "/",
}

// Error reports a lexical failure with its source location.
type Error struct {
	Loc ast.SourceLoc
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Loc.Line, e.Loc.Col, e.Msg)
}

// Lexer scans a source string into a token stream, stripping `//`
// line comments and whitespace.
type Lexer struct {
	src        string
	pos        int
	line, col  int
}

// New constructs a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) loc() ast.SourceLoc {
	return ast.SourceLoc{Line: l.line, Col: l.col, Offset: l.pos}
}

func (l *Lexer) peekByte() (byte, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) skipSpaceAndComments() {
	for {
		b, ok := l.peekByte()
		if !ok {
			return
		}
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			l.advance()
			continue
		}
		if b == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
			for {
				b, ok := l.peekByte()
				if !ok || b == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

// Next returns the next token, or a Kind == EOF token at end of input.
func (l *Lexer) Next() (Token, error) {
	l.skipSpaceAndComments()
	loc := l.loc()
	b, ok := l.peekByte()
	if !ok {
		return Token{Kind: EOF, Loc: loc}, nil
	}

	if isIdentStart(b) {
		start := l.pos
		for {
			b, ok := l.peekByte()
			if !ok || !isIdentCont(b) {
				break
			}
			l.advance()
		}
		text := l.src[start:l.pos]
		if (text == "max" || text == "min") {
			if b, ok := l.peekByte(); ok && b == '=' {
				l.advance()
				return Token{Kind: Punct, Text: text + "=", Loc: loc}, nil
			}
		}
		if keywords[text] {
			return Token{Kind: Keyword, Text: text, Loc: loc}, nil
		}
		return Token{Kind: Ident, Text: text, Loc: loc}, nil
	}

	if isDigit(b) {
		start := l.pos
		for {
			b, ok := l.peekByte()
			if !ok || (!isDigit(b) && b != '.') {
				break
			}
			l.advance()
		}
		return Token{Kind: Number, Text: l.src[start:l.pos], Loc: loc}, nil
	}

	for _, p := range puncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			for range p {
				l.advance()
			}
			return Token{Kind: Punct, Text: p, Loc: loc}, nil
		}
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return Token{}, &Error{Loc: loc, Msg: fmt.Sprintf("unexpected character %q", r)}
}

func isIdentStart(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b))
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// All tokenizes the entire source, returning every token up to and
// including the terminal EOF token.
func All(src string) ([]Token, error) {
	l := New(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}
