package depfile

import (
	"io"

	"github.com/matzehuels/dep2j/pkg/errors"
)

// RawRule is one target with its prerequisites exactly as written.
// Duplicate prerequisites are preserved; deduplication is done when rules are merged.
type RawRule struct {
	Target        string   `json:"target"`
	Prerequisites []string `json:"prerequisites"`
}

// TokenSource yields tokens until it returns io.EOF. *Lexer implements it.
type TokenSource interface {
	Next() (Token, error)
}

// Parse lexes and parses one source and returns its rules in file order.
//
// A rule line naming several targets yields one RawRule per target, each
// with its own copy of the shared prerequisite list. On error no rules are
// returned.
func Parse(source string, data []byte) ([]RawRule, error) {
	return parse(source, NewLexer(source, data), estimateRules(len(data)))
}

// ParseTokens parses an already tokenized source.
func ParseTokens(source string, ts TokenSource) ([]RawRule, error) {
	return parse(source, ts, 16)
}

// estimateRules guesses the number of rules from the input size. Compilers
// emit roughly one rule per couple hundred bytes of dependency output.
func estimateRules(n int) int {
	return max(16, 1+n/256)
}

type lineState struct {
	targets   []string
	first     Pos
	sawSep    bool
	prereqs   []string
	hasTokens bool
}

func (s *lineState) reset() {
	s.targets = s.targets[:0]
	s.prereqs = s.prereqs[:0]
	s.sawSep = false
	s.hasTokens = false
}

func parse(source string, ts TokenSource, capacity int) ([]RawRule, error) {
	rules := make([]RawRule, 0, capacity)
	var ls lineState

	malformed := func(pos Pos, msg string) error {
		return errors.Malformed(errors.Position{Source: source, Line: pos.Line, Offset: pos.Offset}, "%s", msg)
	}

	endRule := func() error {
		defer ls.reset()
		if !ls.hasTokens {
			return nil
		}
		if !ls.sawSep {
			return malformed(ls.first, "missing rule separator ':' after target")
		}
		for _, target := range ls.targets {
			prereqs := make([]string, len(ls.prereqs))
			copy(prereqs, ls.prereqs)
			rules = append(rules, RawRule{Target: target, Prerequisites: prereqs})
		}
		return nil
	}

	for {
		tok, err := ts.Next()
		if err == io.EOF {
			if err := endRule(); err != nil {
				return nil, err
			}
			return rules, nil
		}
		if err != nil {
			return nil, err
		}

		if !ls.hasTokens {
			ls.first = tok.Pos
		}

		switch tok.Kind {
		case TokenTarget:
			if ls.sawSep {
				return nil, malformed(tok.Pos, "target name after rule separator")
			}
			ls.targets = append(ls.targets, tok.Value)
			ls.hasTokens = true
		case TokenSeparator:
			if len(ls.targets) == 0 {
				return nil, malformed(tok.Pos, "rule separator ':' without target")
			}
			if ls.sawSep {
				return nil, malformed(tok.Pos, "duplicate rule separator")
			}
			ls.sawSep = true
			ls.hasTokens = true
		case TokenPrerequisite:
			if !ls.sawSep {
				return nil, malformed(tok.Pos, "prerequisite before rule separator")
			}
			ls.prereqs = append(ls.prereqs, tok.Value)
			ls.hasTokens = true
		case TokenEndOfRule:
			if err := endRule(); err != nil {
				return nil, err
			}
		default:
			return nil, malformed(tok.Pos, "unexpected token "+tok.Kind.String())
		}
	}
}
