package filter

import (
	"strconv"
	"strings"
)

// Parser parses filter strings according to one grammar.
// A Parser holds no per-call state and is safe for concurrent use.
type Parser struct {
	grammar Grammar
}

// NewParser returns a parser for the given grammar version and variant.
// Returns ErrUnknownGrammar if no such grammar is registered.
func NewParser(version, variant string) (*Parser, error) {
	g, err := LookupGrammar(version, variant)
	if err != nil {
		return nil, err
	}
	return &Parser{grammar: g}, nil
}

// Grammar returns the grammar used by the parser.
func (p *Parser) Grammar() Grammar { return p.grammar }

// Parse parses src into an AST.
// An empty or whitespace-only filter returns a nil Node and no error.
// Malformed input returns a *SyntaxError.
func (p *Parser) Parse(src string) (Node, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return nil, nil
	}

	ps := &parseState{grammar: p.grammar, tokens: tokens}
	root, err := ps.parseExpression()
	if err != nil {
		return nil, err
	}

	if tok := ps.peek(); tok.Kind != TokenEOF {
		if tok.Is(TokenPunctuation, ")") {
			return nil, syntaxErrorf(tok.Offset, "unbalanced parenthesis: unexpected \")\"")
		}
		return nil, syntaxErrorf(tok.Offset, "unexpected %s, expected AND, OR or end of input", tok.describe())
	}
	return root, nil
}

// Parse parses src with the default grammar.
func Parse(src string) (Node, error) {
	p := &Parser{grammar: grammars[DefaultVersion+"/"+DefaultVariant]}
	return p.Parse(src)
}

type parseState struct {
	grammar Grammar
	tokens  []Token
	pos     int
}

func (ps *parseState) peek() Token {
	return ps.tokens[ps.pos]
}

func (ps *parseState) advance() Token {
	tok := ps.tokens[ps.pos]
	if tok.Kind != TokenEOF {
		ps.pos++
	}
	return tok
}

func (ps *parseState) isKeyword(kw string) bool {
	return ps.peek().Is(TokenKeyword, kw)
}

func (ps *parseState) isPunct(p string) bool {
	return ps.peek().Is(TokenPunctuation, p)
}

// frame is one open parenthesis level of parseExpression.
type frame struct {
	open Token
	// or holds the finished clauses, and the phrases of the current clause.
	or, and []Node
	// nots are the NOT keywords waiting for the next phrase.
	nots []Token
}

// finish closes the current clause and returns the frame's expression.
func (f *frame) finish() Node {
	f.or = appendFlat(f.or, chain(LogicalAnd, f.and), LogicalOr)
	f.and = nil
	return chain(LogicalOr, f.or)
}

// phrase adds a parsed phrase to the current clause, applying pending NOTs.
func (f *frame) phrase(n Node) {
	for i := len(f.nots) - 1; i >= 0; i-- {
		n = negate(f.nots[i], n)
	}
	f.nots = f.nots[:0]
	f.and = appendFlat(f.and, n, LogicalAnd)
}

// negate wraps n in NOT. A double negation cancels out.
func negate(tok Token, n Node) Node {
	if inner, ok := n.(*Not); ok {
		return inner.Child
	}
	return &Not{Offset: tok.Offset, Child: n}
}

// appendFlat appends n to list, splicing in the children of a parenthesised
// chain with the same operator.
func appendFlat(list []Node, n Node, op LogicalOp) []Node {
	if l, ok := n.(*Logical); ok && l.Op == op {
		return append(list, l.Children...)
	}
	return append(list, n)
}

func chain(op LogicalOp, children []Node) Node {
	if len(children) == 1 {
		return children[0]
	}
	return &Logical{Offset: children[0].Pos(), Op: op, Children: children}
}

// parseExpression parses
//
//	Expression = Clause { OR Clause }
//	Clause     = Phrase { AND Phrase }
//	Phrase     = NOT Phrase | "(" Expression ")" | Comparison
//
// with an explicit stack of open parentheses, so nesting depth is bounded
// by memory rather than by the goroutine stack.
func (ps *parseState) parseExpression() (Node, error) {
	stack := []*frame{{}}
	operand := true
	for {
		top := stack[len(stack)-1]
		tok := ps.peek()

		if operand {
			switch {
			case tok.Is(TokenKeyword, KeywordNot):
				ps.advance()
				top.nots = append(top.nots, tok)
			case tok.Is(TokenPunctuation, "("):
				ps.advance()
				stack = append(stack, &frame{open: tok})
			default:
				n, err := ps.parseComparison()
				if err != nil {
					return nil, err
				}
				top.phrase(n)
				operand = false
			}
			continue
		}

		switch {
		case tok.Is(TokenKeyword, KeywordAnd):
			ps.advance()
			operand = true
		case tok.Is(TokenKeyword, KeywordOr):
			ps.advance()
			top.or = appendFlat(top.or, chain(LogicalAnd, top.and), LogicalOr)
			top.and = nil
			operand = true
		case tok.Is(TokenPunctuation, ")") && len(stack) > 1:
			ps.advance()
			stack = stack[:len(stack)-1]
			stack[len(stack)-1].phrase(top.finish())
		default:
			if len(stack) > 1 {
				return nil, syntaxErrorf(tok.Offset,
					"unbalanced parenthesis: expected \")\" to close \"(\" at offset %d, got %s",
					top.open.Offset, tok.describe())
			}
			return top.finish(), nil
		}
	}
}

func (ps *parseState) parseComparison() (Node, error) {
	tok := ps.peek()
	switch tok.Kind {
	case TokenIdentifier:
		path, err := ps.parseProperty()
		if err != nil {
			return nil, err
		}
		return ps.parsePropertyRhs(path, tok.Offset)

	case TokenString, TokenNumber:
		return ps.parseConstantFirst()

	case TokenEOF:
		return nil, syntaxErrorf(tok.Offset, "unexpected end of input, expected a comparison")
	}

	if tok.Is(TokenPunctuation, ")") {
		return nil, syntaxErrorf(tok.Offset, "unbalanced parenthesis: unexpected \")\"")
	}
	return nil, syntaxErrorf(tok.Offset, "unexpected %s, expected a comparison", tok.describe())
}

// parseConstantFirst parses Constant Operator Property and normalises it
// to the property-first form.
func (ps *parseState) parseConstantFirst() (Node, error) {
	start := ps.peek().Offset
	value, err := ps.parseValue()
	if err != nil {
		return nil, err
	}

	opTok := ps.peek()
	if opTok.Kind != TokenOperator {
		return nil, syntaxErrorf(opTok.Offset, "expected operator after constant, got %s", opTok.describe())
	}
	ps.advance()

	rhs := ps.peek()
	if rhs.Kind != TokenIdentifier {
		return nil, syntaxErrorf(rhs.Offset, "comparison must reference a property, got %s", rhs.describe())
	}
	path, err := ps.parseProperty()
	if err != nil {
		return nil, err
	}

	return &Comparison{
		Offset:   start,
		Property: path,
		Op:       Operator(opTok.Text).Flip(),
		Value:    value,
	}, nil
}

// parseProperty parses Identifier { "." Identifier }.
func (ps *parseState) parseProperty() (PropertyPath, error) {
	tok := ps.advance()
	if tok.Kind != TokenIdentifier {
		return nil, syntaxErrorf(tok.Offset, "expected property name, got %s", tok.describe())
	}
	path := PropertyPath{tok.Text}
	for ps.isPunct(".") {
		ps.advance()
		seg := ps.advance()
		if seg.Kind != TokenIdentifier {
			return nil, syntaxErrorf(seg.Offset, "expected identifier after \".\", got %s", seg.describe())
		}
		path = append(path, seg.Text)
	}
	return path, nil
}

func (ps *parseState) parsePropertyRhs(path PropertyPath, offset int) (Node, error) {
	tok := ps.peek()

	if tok.Kind == TokenOperator {
		ps.advance()
		v, err := ps.parseValue()
		if err != nil {
			return nil, err
		}
		return &Comparison{Offset: offset, Property: path, Op: Operator(tok.Text), Value: v}, nil
	}

	if tok.Is(TokenPunctuation, ":") {
		return ps.parseZip(path, offset)
	}

	if tok.Kind != TokenKeyword {
		if tok.Kind == TokenEOF {
			return nil, syntaxErrorf(tok.Offset, "unexpected end of input after property %q", path.String())
		}
		return nil, syntaxErrorf(tok.Offset, "expected operator after property %q, got %s", path.String(), tok.describe())
	}

	switch tok.Text {
	case KeywordIs:
		ps.advance()
		next := ps.advance()
		switch {
		case next.Is(TokenKeyword, KeywordKnown):
			return &KnownPredicate{Offset: offset, Property: path, Known: true}, nil
		case next.Is(TokenKeyword, KeywordUnknown):
			return &KnownPredicate{Offset: offset, Property: path, Known: false}, nil
		}
		return nil, syntaxErrorf(next.Offset, "expected KNOWN or UNKNOWN after IS, got %s", next.describe())

	case KeywordContains:
		ps.advance()
		return ps.parseFuzzy(path, offset, OpContains)

	case KeywordStarts, KeywordEnds:
		ps.advance()
		if ps.isKeyword(KeywordWith) {
			ps.advance()
		}
		op := OpStartsWith
		if tok.Text == KeywordEnds {
			op = OpEndsWith
		}
		return ps.parseFuzzy(path, offset, op)

	case KeywordHas:
		ps.advance()
		return ps.parseHas(path, offset)

	case KeywordLength:
		if !ps.grammar.Length {
			return nil, syntaxErrorf(tok.Offset, "LENGTH is not supported by grammar %s", ps.grammar.Key())
		}
		ps.advance()
		op := OpEqual
		if next := ps.peek(); next.Kind == TokenOperator {
			op = Operator(next.Text)
			ps.advance()
		}
		numTok := ps.peek()
		if numTok.Kind != TokenNumber {
			return nil, syntaxErrorf(numTok.Offset, "expected number after LENGTH, got %s", numTok.describe())
		}
		v, err := ps.parseValue()
		if err != nil {
			return nil, err
		}
		return &Length{Offset: offset, Property: path, Op: op, Value: v}, nil
	}

	return nil, syntaxErrorf(tok.Offset, "unexpected keyword %s after property %q", tok.Text, path.String())
}

func (ps *parseState) parseFuzzy(path PropertyPath, offset int, op Operator) (Node, error) {
	v, err := ps.parseValue()
	if err != nil {
		return nil, err
	}
	return &Comparison{Offset: offset, Property: path, Op: op, Value: v}, nil
}

func (ps *parseState) setKind() SetKind {
	tok := ps.peek()
	if tok.Kind != TokenKeyword {
		return SetHas
	}
	switch tok.Text {
	case KeywordAll:
		ps.advance()
		return SetHasAll
	case KeywordAny:
		ps.advance()
		return SetHasAny
	case KeywordOnly:
		ps.advance()
		return SetHasOnly
	}
	return SetHas
}

// parseHas parses the part after HAS: [op] value, or ALL/ANY/ONLY list.
func (ps *parseState) parseHas(path PropertyPath, offset int) (Node, error) {
	kind := ps.setKind()
	if kind == SetHas {
		item, err := ps.parseListItem()
		if err != nil {
			return nil, err
		}
		return &SetPredicate{Offset: offset, Property: path, Kind: SetHas, Values: []SetItem{item}}, nil
	}

	items, err := ps.parseList()
	if err != nil {
		return nil, err
	}
	return &SetPredicate{Offset: offset, Property: path, Kind: kind, Values: items}, nil
}

// parseList parses "[" [ item { "," item } ] "]" or item { "," item }.
// A bracketed list may be empty.
func (ps *parseState) parseList() ([]SetItem, error) {
	open := ps.peek()
	bracketed := open.Is(TokenPunctuation, "[")
	if bracketed {
		if !ps.grammar.BracketLists {
			return nil, syntaxErrorf(open.Offset, "list literals are not supported by grammar %s", ps.grammar.Key())
		}
		ps.advance()
		if ps.isPunct("]") {
			ps.advance()
			return []SetItem{}, nil
		}
	}

	var items []SetItem
	for {
		item, err := ps.parseListItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !ps.isPunct(",") {
			break
		}
		ps.advance()
	}

	if bracketed {
		if !ps.isPunct("]") {
			next := ps.peek()
			return nil, syntaxErrorf(next.Offset,
				"unbalanced bracket: expected \"]\" to close \"[\" at offset %d, got %s",
				open.Offset, next.describe())
		}
		ps.advance()
	}
	return items, nil
}

func (ps *parseState) parseListItem() (SetItem, error) {
	op := OpEqual
	if tok := ps.peek(); tok.Kind == TokenOperator {
		op = Operator(tok.Text)
		ps.advance()
	}
	v, err := ps.parseValue()
	if err != nil {
		return SetItem{}, err
	}
	return SetItem{Op: op, Value: v}, nil
}

// parseZip parses ":" Property { ":" Property } HAS ... after the first property.
func (ps *parseState) parseZip(first PropertyPath, offset int) (Node, error) {
	if !ps.grammar.Zip {
		return nil, syntaxErrorf(ps.peek().Offset, "zipped properties are not supported by grammar %s", ps.grammar.Key())
	}

	props := []PropertyPath{first}
	for ps.isPunct(":") {
		ps.advance()
		path, err := ps.parseProperty()
		if err != nil {
			return nil, err
		}
		props = append(props, path)
	}

	if tok := ps.peek(); !tok.Is(TokenKeyword, KeywordHas) {
		return nil, syntaxErrorf(tok.Offset, "expected HAS after zipped properties, got %s", tok.describe())
	}
	ps.advance()

	kind := ps.setKind()
	var tuples [][]SetItem
	for {
		tupleStart := ps.peek().Offset
		tuple, err := ps.parseTuple()
		if err != nil {
			return nil, err
		}
		if len(tuple) != len(props) {
			return nil, syntaxErrorf(tupleStart, "expected %d zipped values, got %d", len(props), len(tuple))
		}
		tuples = append(tuples, tuple)
		if kind == SetHas || !ps.isPunct(",") {
			break
		}
		ps.advance()
	}

	return &ZipPredicate{Offset: offset, Properties: props, Kind: kind, Tuples: tuples}, nil
}

func (ps *parseState) parseTuple() ([]SetItem, error) {
	var tuple []SetItem
	for {
		item, err := ps.parseListItem()
		if err != nil {
			return nil, err
		}
		tuple = append(tuple, item)
		if !ps.isPunct(":") {
			return tuple, nil
		}
		ps.advance()
	}
}

// parseValue parses String | Number | Property.
func (ps *parseState) parseValue() (Value, error) {
	tok := ps.peek()
	switch tok.Kind {
	case TokenString:
		ps.advance()
		return StringValue(tok.Text), nil
	case TokenNumber:
		ps.advance()
		return parseNumber(tok)
	case TokenIdentifier:
		path, err := ps.parseProperty()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueProperty, Path: path}, nil
	}
	return Value{}, syntaxErrorf(tok.Offset, "expected value, got %s", tok.describe())
}

// parseNumber converts an integral literal to int64, falling back to float64
// when it has a fraction or exponent or does not fit.
func parseNumber(tok Token) (Value, error) {
	if !strings.ContainsAny(tok.Text, ".eE") {
		if i, err := strconv.ParseInt(tok.Text, 10, 64); err == nil {
			return IntValue(i), nil
		}
	}
	f, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return Value{}, syntaxErrorf(tok.Offset, "invalid number %q", tok.Text)
	}
	return FloatValue(f), nil
}
