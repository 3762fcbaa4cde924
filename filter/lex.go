package filter

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// filterLexer tokenizes the filter language. Rule order matters: a lone
// quote only matches Unterminated once String has failed, and Char catches
// any byte no other rule accepts.
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\["\\]|\\[^"\\]|[^"\\])*"`},
	{Name: "Unterminated", Pattern: `"`},
	{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `!=|<=|>=|[=<>]`},
	{Name: "Punct", Pattern: `[()\[\],.:]`},
	{Name: "Whitespace", Pattern: `[ \t\n\r\f\v]+`},
	{Name: "Char", Pattern: `.`},
})

var (
	symbols         = filterLexer.Symbols()
	tokString       = symbols["String"]
	tokUnterminated = symbols["Unterminated"]
	tokNumber       = symbols["Number"]
	tokIdent        = symbols["Ident"]
	tokOperator     = symbols["Operator"]
	tokPunct        = symbols["Punct"]
	tokWhitespace   = symbols["Whitespace"]
)

// Lex splits a filter string into tokens.
// The returned slice always ends with a TokenEOF token whose offset is len(src).
func Lex(src string) ([]Token, error) {
	lex, err := filterLexer.LexString("", src)
	if err != nil {
		return nil, lexError(err)
	}

	var tokens []Token
	for {
		t, err := lex.Next()
		if err != nil {
			return nil, lexError(err)
		}
		offset := t.Pos.Offset
		switch t.Type {
		case lexer.EOF:
			return append(tokens, Token{Kind: TokenEOF, Offset: len(src)}), nil
		case tokWhitespace:
		case tokString:
			tokens = append(tokens, Token{Kind: TokenString, Text: unquote(t.Value), Offset: offset})
		case tokNumber:
			tokens = append(tokens, Token{Kind: TokenNumber, Text: t.Value, Offset: offset})
		case tokIdent:
			if n := len(tokens); n > 0 && tokens[n-1].Kind == TokenNumber &&
				tokens[n-1].Offset+len(tokens[n-1].Text) == offset {
				return nil, syntaxErrorf(offset, "unexpected character %q after number", t.Value[0])
			}
			if upper := strings.ToUpper(t.Value); keywords[upper] {
				tokens = append(tokens, Token{Kind: TokenKeyword, Text: upper, Offset: offset})
			} else {
				tokens = append(tokens, Token{Kind: TokenIdentifier, Text: t.Value, Offset: offset})
			}
		case tokOperator:
			tokens = append(tokens, Token{Kind: TokenOperator, Text: t.Value, Offset: offset})
		case tokPunct:
			tokens = append(tokens, Token{Kind: TokenPunctuation, Text: t.Value, Offset: offset})
		case tokUnterminated:
			return nil, syntaxErrorf(offset, "unterminated string literal")
		default:
			if t.Value == "!" {
				return nil, syntaxErrorf(offset, "unknown operator \"!\"")
			}
			return nil, syntaxErrorf(offset, "unexpected character %q", t.Value)
		}
	}
}

// unquote strips the quotes of a string token. Only \" and \\ are escapes;
// any other backslash is kept literally.
func unquote(s string) string {
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func lexError(err error) error {
	var lerr *lexer.Error
	if errors.As(err, &lerr) {
		return syntaxErrorf(lerr.Pos.Offset, "%s", lerr.Msg)
	}
	return syntaxErrorf(0, "%v", err)
}
