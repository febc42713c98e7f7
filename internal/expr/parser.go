package expr

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrSyntax is the kind of every error returned by Parse. Callers distinguish
// malformed notation from evaluation failures by matching this sentinel.
var ErrSyntax = errors.New("expr: syntax error")

// Parse translates tabletop dice notation into an expression tree.
//
// Supported grammar, with usual precedence ('*' and '/' bind tighter than
// '+' and '-'):
//
//	expression := term { ('+'|'-') term }
//	term       := unary { ('*'|'/') unary }
//	unary      := ('+'|'-') unary | primary
//	primary    := '(' expression ')' | pool | INT
//	pool       := [INT] 'd' INT { modifier }
//	modifier   := ('mi'|'ma'|'ro'|'rr'|'ra'|'e'|'k'|'p') ['h'|'l'|'<'|'>'] INT
//
// Precondition: input must be non-empty.
// Postcondition: returns a non-nil Node or an error wrapping ErrSyntax.
func Parse(input string) (Node, error) {
	p := &parser{input: input}
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, p.errorf("unexpected %q", p.input[p.pos])
	}
	return node, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s at offset %d in %q", ErrSyntax, msg, p.pos, p.input)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// peek returns the next byte without consuming it, or 0 at end of input.
func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: BinaryOp(op), Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: BinaryOp(op), Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	p.skipSpace()
	op := p.peek()
	if op == '+' || op == '-' {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: UnaryOp(op), Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, p.errorf("expected ')'")
		}
		p.pos++
		return &Paren{Inner: inner}, nil
	case c == 'd':
		// Bare "dN" rolls a single die.
		return p.parsePool(1)
	case c >= '0' && c <= '9':
		value, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		if p.peek() == 'd' {
			if value < 1 {
				return nil, p.errorf("die count must be >= 1, got %d", value)
			}
			return p.parsePool(value)
		}
		return &Literal{Value: value}, nil
	case c == 0:
		return nil, p.errorf("unexpected end of expression")
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

// parsePool parses the "dN{modifier}" suffix of a dice pool whose count has
// already been consumed.
func (p *parser) parsePool(count int) (Node, error) {
	p.pos++ // consume 'd'
	sides, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if sides < 1 {
		return nil, p.errorf("die sides must be >= 1, got %d", sides)
	}
	pool := &Pool{Count: count, Sides: sides}
	for {
		op, ok, err := p.parseOpcode()
		if err != nil {
			return nil, err
		}
		if !ok {
			return pool, nil
		}
		sel, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		pool.Ops = append(pool.Ops, Operation{Op: op, Selectors: []Selector{sel}})
	}
}

// parseOpcode consumes the next modifier opcode if one is present. Modifier
// chains attach directly to the pool with no intervening whitespace.
func (p *parser) parseOpcode() (Opcode, bool, error) {
	switch p.peek() {
	case 'm':
		p.pos++
		switch p.peek() {
		case 'i':
			p.pos++
			return OpMin, true, nil
		case 'a':
			p.pos++
			return OpMax, true, nil
		default:
			return "", false, p.errorf("expected 'mi' or 'ma'")
		}
	case 'r':
		p.pos++
		switch p.peek() {
		case 'o':
			p.pos++
			return OpRerollOnce, true, nil
		case 'r':
			p.pos++
			return OpRerollAlways, true, nil
		case 'a':
			p.pos++
			return OpRerollAdd, true, nil
		default:
			return "", false, p.errorf("expected 'ro', 'rr', or 'ra'")
		}
	case 'e':
		p.pos++
		return OpExplode, true, nil
	case 'k':
		p.pos++
		return OpKeep, true, nil
	case 'p':
		p.pos++
		return OpDrop, true, nil
	default:
		return "", false, nil
	}
}

func (p *parser) parseSelector() (Selector, error) {
	cat := CatNone
	switch p.peek() {
	case 'h':
		cat = CatHighest
		p.pos++
	case 'l':
		cat = CatLowest
		p.pos++
	case '<':
		cat = CatLess
		p.pos++
	case '>':
		cat = CatGreater
		p.pos++
	}
	num, err := p.parseInt()
	if err != nil {
		return Selector{}, err
	}
	return Selector{Cat: cat, Num: num}, nil
}

func (p *parser) parseInt() (int, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf("expected a number")
	}
	value, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil {
		return 0, p.errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}
