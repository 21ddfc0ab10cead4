package lexer

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the type of a lexical token.
type Kind string

const (
	// Special
	EOF Kind = "EOF"

	// Literals
	IDENT  Kind = "IDENT"  // identifiers: x, counter, _tmp1
	NUMBER Kind = "NUMBER" // decimal integer literals: 0, 42

	// Keywords (matched case-insensitively)
	IF     Kind = "IF"
	FOR    Kind = "FOR"
	RETURN Kind = "RETURN"

	// Delimiters
	LPAREN    Kind = "LPAREN"    // (
	RPAREN    Kind = "RPAREN"    // )
	LBRACE    Kind = "LBRACE"    // {
	RBRACE    Kind = "RBRACE"    // }
	SEMICOLON Kind = "SEMICOLON" // ;

	// Operators
	ASSIGN    Kind = "ASSIGN"    // =
	LOGIC_OP  Kind = "LOGIC_OP"  // < > <= >= ==
	ARITHM_OP Kind = "ARITHM_OP" // + - * /
)

// keywords maps lower-cased reserved words to their token kinds.
var keywords = map[string]Kind{
	"if":     IF,
	"for":    FOR,
	"return": RETURN,
}

// Token represents a single lexical token produced by the lexer.
type Token struct {
	Kind   Kind
	Text   string
	Offset int // byte offset of the first character
	Line   int
	Column int
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
}

// Error is a lexical error: a character that matches none of the patterns.
type Error struct {
	Char   string
	Offset int
	Line   int
	Column int
}

func (e *Error) Error() string {
	return fmt.Sprintf("offset %d (line %d, col %d): unexpected character %q", e.Offset, e.Line, e.Column, e.Char)
}

// pattern is one entry of the scanner table. An empty kind means the match
// is discarded.
type pattern struct {
	kind Kind
	re   *regexp.Regexp
}

// patterns is tried in order at every scan position; the first match wins,
// regardless of length. Multi-character comparison operators therefore sit
// ahead of ASSIGN and of their single-character prefixes.
var patterns = []pattern{
	{"", regexp.MustCompile(`^[ \t\r\n]+`)},
	{NUMBER, regexp.MustCompile(`^[0-9]+`)},
	{IDENT, regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)},
	{LOGIC_OP, regexp.MustCompile(`^(<=|>=|==|<|>)`)},
	{ASSIGN, regexp.MustCompile(`^=`)},
	{ARITHM_OP, regexp.MustCompile(`^[+\-*/]`)},
	{LPAREN, regexp.MustCompile(`^\(`)},
	{RPAREN, regexp.MustCompile(`^\)`)},
	{LBRACE, regexp.MustCompile(`^\{`)},
	{RBRACE, regexp.MustCompile(`^\}`)},
	{SEMICOLON, regexp.MustCompile(`^;`)},
}

// Lexer is a restartable cursor over a source string.
type Lexer struct {
	input string
	pos   int
	line  int
	col   int
	done  bool
}

// New returns a lexer positioned at the start of input.
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the beginning of its input.
func (l *Lexer) Reset() {
	l.pos, l.line, l.col = 0, 1, 1
	l.done = false
}

// NextToken scans and returns the next token. Once the input is exhausted it
// returns EOF on every call.
func (l *Lexer) NextToken() (Token, error) {
	for l.pos < len(l.input) {
		rest := l.input[l.pos:]
		var (
			kind  Kind
			width int
		)
		for _, p := range patterns {
			if loc := p.re.FindStringIndex(rest); loc != nil {
				kind, width = p.kind, loc[1]
				break
			}
		}
		if width == 0 {
			return Token{}, &Error{
				Char:   firstChar(rest),
				Offset: l.pos,
				Line:   l.line,
				Column: l.col,
			}
		}

		text := rest[:width]
		tok := Token{Kind: kind, Text: text, Offset: l.pos, Line: l.line, Column: l.col}
		l.advance(text)
		if kind == "" {
			continue
		}
		if kind == IDENT {
			if kw, ok := keywords[strings.ToLower(text)]; ok {
				tok.Kind = kw
			}
		}
		return tok, nil
	}
	l.done = true
	return Token{Kind: EOF, Offset: l.pos, Line: l.line, Column: l.col}, nil
}

// Done reports whether the lexer has produced its EOF token.
func (l *Lexer) Done() bool {
	return l.done
}

func (l *Lexer) advance(text string) {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
	l.pos += len(text)
}

// firstChar returns the first UTF-8 character of s so multi-byte input is
// reported whole.
func firstChar(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

/**
* Tokenize lexes the whole input. The returned slice always ends with exactly
* one EOF token. The first unexpected character aborts lexing.
 */
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

// SliceSource replays a materialized token slice through the NextToken
// interface. Past the end it keeps returning the final token.
type SliceSource struct {
	tokens []Token
	pos    int
}

// NewSliceSource wraps tokens, appending an EOF if the slice lacks one.
func NewSliceSource(tokens []Token) *SliceSource {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != EOF {
		var eof Token
		eof.Kind = EOF
		if n := len(tokens); n > 0 {
			last := tokens[n-1]
			eof.Offset = last.Offset + len(last.Text)
			eof.Line = last.Line
			eof.Column = last.Column + len(last.Text)
		}
		tokens = append(tokens[:len(tokens):len(tokens)], eof)
	}
	return &SliceSource{tokens: tokens}
}

// NextToken returns the next buffered token.
func (s *SliceSource) NextToken() (Token, error) {
	tok := s.tokens[s.pos]
	if s.pos < len(s.tokens)-1 {
		s.pos++
	}
	return tok, nil
}

// Reset rewinds the source to the first token.
func (s *SliceSource) Reset() {
	s.pos = 0
}
