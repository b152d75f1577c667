package depfile

import (
	"io"

	"github.com/matzehuels/dep2j/pkg/errors"
)

// state is a lexer state. stateNormal and stateAfterColon double as the two
// sections of a logical line (targets, prerequisites).
type state int

const (
	stateNormal state = iota
	stateAfterColon
	stateAfterBackslash
	stateInComment
)

// Lexer turns the bytes of one source into a lazy sequence of tokens.
//
// The lexer is single-pass: it cannot be rewound, and a new Lexer must be
// created for every source. It is not safe for concurrent use.
type Lexer struct {
	source string
	data   []byte
	off    int
	line   int

	state   state
	section state // stateNormal or stateAfterColon
	escFrom state // state that saw the pending backslash
	escOff  int

	name      []byte
	nameStart Pos

	lineHasTokens bool
	afterSep      bool // previous byte was the rule separator

	pending []Token
	err     error
	done    bool
}

// NewLexer creates a lexer over data. source names the input in errors.
func NewLexer(source string, data []byte) *Lexer {
	return &Lexer{
		source: source,
		data:   data,
		line:   1,
		name:   make([]byte, 0, 64),
	}
}

// Next returns the next token. It returns io.EOF once the input is
// exhausted, and a MALFORMED_INPUT error if the input ends inside an
// escape. Once an error is returned every later call returns it again.
func (l *Lexer) Next() (Token, error) {
	for len(l.pending) == 0 {
		if l.err != nil {
			return Token{}, l.err
		}
		if l.done {
			return Token{}, io.EOF
		}
		l.step()
	}
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok, nil
}

// step consumes one byte, or handles end of input.
func (l *Lexer) step() {
	if l.off >= len(l.data) {
		l.finish()
		return
	}

	c := l.data[l.off]
	switch l.state {
	case stateNormal, stateAfterColon:
		l.stepName(c)
	case stateAfterBackslash:
		l.stepEscape(c)
	case stateInComment:
		l.stepComment(c)
	}
}

func (l *Lexer) stepName(c byte) {
	off := l.off
	l.off++

	sep := l.afterSep
	l.afterSep = false

	switch c {
	case '\\':
		l.escFrom = l.state
		l.escOff = off
		l.state = stateAfterBackslash
	case ' ', '\t', '\r':
		l.flushName()
	case '\n':
		l.endLine(off)
		l.line++
	case '#':
		l.flushName()
		l.state = stateInComment
	case ':':
		switch {
		case l.state == stateNormal:
			l.flushName()
			l.emit(Token{Kind: TokenSeparator, Pos: Pos{Line: l.line, Offset: off}})
			l.state = stateAfterColon
			l.section = stateAfterColon
			l.afterSep = true
		case sep:
			// double-colon rule: "a.o:: b.c"
		default:
			l.appendName(c, off)
		}
	default:
		l.appendName(c, off)
	}
}

func (l *Lexer) stepEscape(c byte) {
	inComment := l.escFrom == stateInComment

	switch c {
	case '\n':
		l.off++
		l.continueLine(inComment)
		return
	case '\r':
		if l.off+1 < len(l.data) && l.data[l.off+1] == '\n' {
			l.off += 2
			l.continueLine(inComment)
			return
		}
	case ' ', '\t', '#', ':':
		l.off++
		if inComment {
			l.state = stateInComment
			return
		}
		l.appendName(c, l.escOff)
		l.state = l.escFrom
		return
	}

	// Any other byte: the backslash is literal and c is lexed normally.
	if inComment {
		l.state = stateInComment
		return
	}
	l.appendName('\\', l.escOff)
	l.state = l.escFrom
}

// continueLine joins the next physical line onto the current logical line.
// Inside a name the continuation acts as a separator.
func (l *Lexer) continueLine(inComment bool) {
	l.line++
	if inComment {
		l.state = stateInComment
		return
	}
	l.flushName()
	l.state = l.escFrom
}

func (l *Lexer) stepComment(c byte) {
	off := l.off
	l.off++

	switch c {
	case '\\':
		l.escFrom = stateInComment
		l.escOff = off
		l.state = stateAfterBackslash
	case '\n':
		l.endLine(off)
		l.line++
	}
}

func (l *Lexer) finish() {
	if l.state == stateAfterBackslash {
		l.err = errors.Malformed(
			errors.Position{Source: l.source, Line: l.line, Offset: l.escOff},
			"unterminated escape at end of input",
		)
		return
	}
	l.endLine(l.off)
	l.done = true
}

// endLine terminates the logical line whose newline (or end of input) is at off.
func (l *Lexer) endLine(off int) {
	l.flushName()
	if l.lineHasTokens {
		l.emit(Token{Kind: TokenEndOfRule, Pos: Pos{Line: l.line, Offset: off}})
	}
	l.state = stateNormal
	l.section = stateNormal
	l.lineHasTokens = false
	l.afterSep = false
}

func (l *Lexer) appendName(c byte, off int) {
	if len(l.name) == 0 {
		l.nameStart = Pos{Line: l.line, Offset: off}
	}
	l.name = append(l.name, c)
}

// flushName emits the pending name, if any. Empty names are never emitted.
func (l *Lexer) flushName() {
	if len(l.name) == 0 {
		return
	}
	kind := TokenTarget
	if l.section == stateAfterColon {
		kind = TokenPrerequisite
	}
	l.emit(Token{Kind: kind, Value: string(l.name), Pos: l.nameStart})
	l.name = l.name[:0]
}

func (l *Lexer) emit(tok Token) {
	l.lineHasTokens = true
	l.pending = append(l.pending, tok)
}

// Tokenize lexes all of data and returns the tokens in order.
func Tokenize(source string, data []byte) ([]Token, error) {
	lex := NewLexer(source, data)
	var toks []Token
	for {
		tok, err := lex.Next()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
}
