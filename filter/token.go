package filter

import "strings"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdentifier
	TokenNumber
	TokenString
	TokenOperator
	TokenKeyword
	TokenPunctuation
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenOperator:
		return "operator"
	case TokenKeyword:
		return "keyword"
	case TokenPunctuation:
		return "punctuation"
	default:
		return "unknown"
	}
}

// Token is a lexical unit of a filter string.
type Token struct {
	Kind TokenKind

	// Text is the literal value: the unquoted, unescaped content for strings,
	// the upper-cased word for keywords, and the source text otherwise.
	Text string

	// Offset is the byte offset of the token in the filter string.
	Offset int
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return "string \"" + t.Text + "\""
	default:
		return t.Kind.String() + " \"" + t.Text + "\""
	}
}

// Keywords of the filter language. Matching is case-insensitive.
const (
	KeywordAnd      = "AND"
	KeywordOr       = "OR"
	KeywordNot      = "NOT"
	KeywordHas      = "HAS"
	KeywordAll      = "ALL"
	KeywordAny      = "ANY"
	KeywordOnly     = "ONLY"
	KeywordIs       = "IS"
	KeywordKnown    = "KNOWN"
	KeywordUnknown  = "UNKNOWN"
	KeywordLength   = "LENGTH"
	KeywordContains = "CONTAINS"
	KeywordStarts   = "STARTS"
	KeywordEnds     = "ENDS"
	KeywordWith     = "WITH"
)

var keywords = map[string]bool{
	KeywordAnd:      true,
	KeywordOr:       true,
	KeywordNot:      true,
	KeywordHas:      true,
	KeywordAll:      true,
	KeywordAny:      true,
	KeywordOnly:     true,
	KeywordIs:       true,
	KeywordKnown:    true,
	KeywordUnknown:  true,
	KeywordLength:   true,
	KeywordContains: true,
	KeywordStarts:   true,
	KeywordEnds:     true,
	KeywordWith:     true,
}

// IsKeyword reports whether word is a reserved keyword of the filter language.
func IsKeyword(word string) bool {
	return keywords[strings.ToUpper(word)]
}
