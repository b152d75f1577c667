package depfile

import "fmt"

// TokenKind classifies a lexical token of a dependency file.
type TokenKind int

const (
	// TokenTarget is a name before the rule separator.
	TokenTarget TokenKind = iota + 1
	// TokenPrerequisite is a name after the rule separator.
	TokenPrerequisite
	// TokenSeparator is the unescaped ':' between targets and prerequisites.
	TokenSeparator
	// TokenEndOfRule ends a logical line that produced at least one token.
	TokenEndOfRule
)

// String returns the token kind name used in diagnostics.
func (k TokenKind) String() string {
	switch k {
	case TokenTarget:
		return "TARGET_NAME"
	case TokenPrerequisite:
		return "PREREQUISITE_NAME"
	case TokenSeparator:
		return "RULE_SEPARATOR"
	case TokenEndOfRule:
		return "END_OF_RULE"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Pos is the location of a token's first byte.
type Pos struct {
	Line   int // 1-based physical line
	Offset int // 0-based byte offset
}

// Token is one lexical unit. Value holds the decoded name with escapes and
// continuations already resolved; it is empty for separators and rule ends.
type Token struct {
	Kind  TokenKind
	Value string
	Pos   Pos
}

// String provides a compact representation, useful for debugging and test output.
func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("%s@%d:%d", t.Kind, t.Pos.Line, t.Pos.Offset)
	}
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Value, t.Pos.Line, t.Pos.Offset)
}
