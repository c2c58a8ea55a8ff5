package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
)

// parser evaluates a single expression as it parses: identifier lookup,
// property access, indexing, calls, and string/number literals. There are no
// operators or assignments; the session is a call-and-inspect shell.
type parser struct {
	src []rune
	pos int
	env *Env
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseExpr() (any, error) {
	value, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '.':
			p.pos++
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			value, err = member(value, name)
			if err != nil {
				return nil, err
			}
		case '(':
			p.pos++
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			fn, ok := value.(*callable)
			if !ok {
				return nil, fmt.Errorf("value of type %T is not callable", value)
			}
			value, err = fn.fn(args)
			if err != nil {
				return nil, err
			}
		case '[':
			p.pos++
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if p.peek() != ']' {
				return nil, fmt.Errorf("expected ] in index expression")
			}
			p.pos++
			value, err = index(value, idx)
			if err != nil {
				return nil, err
			}
		default:
			return value, nil
		}
	}
}

func (p *parser) parsePrimary() (any, error) {
	p.skipSpace()
	if p.eof() {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	c := p.peek()
	switch {
	case c == '"' || c == '\'':
		return p.parseString(c)
	case c >= '0' && c <= '9':
		return p.parseNumber()
	case isIdentStart(c):
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		return p.env.lookup(name)
	case c == '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected )")
		}
		p.pos++
		return value, nil
	}
	return nil, fmt.Errorf("unexpected character %q", string(c))
}

func (p *parser) parseArgs() ([]any, error) {
	args := []any{}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return args, nil
	}
	for {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, value)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return args, nil
		default:
			return nil, fmt.Errorf("expected , or ) in argument list")
		}
	}
}

func (p *parser) parseIdent() (string, error) {
	p.skipSpace()
	start := p.pos
	if p.eof() || !isIdentStart(p.src[p.pos]) {
		return "", fmt.Errorf("expected an identifier")
	}
	p.pos++
	for !p.eof() && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

func (p *parser) parseString(quote rune) (any, error) {
	p.pos++ // opening quote
	var sb []rune
	for !p.eof() {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return string(sb), nil
		case '\\':
			if p.eof() {
				return nil, fmt.Errorf("unterminated escape sequence")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb = append(sb, '\n')
			case 't':
				sb = append(sb, '\t')
			case 'r':
				sb = append(sb, '\r')
			default:
				sb = append(sb, esc)
			}
		default:
			sb = append(sb, c)
		}
	}
	return nil, fmt.Errorf("unterminated string literal")
}

func (p *parser) parseNumber() (any, error) {
	start := p.pos
	for !p.eof() && isNumberPart(p.src[p.pos]) {
		p.pos++
	}
	text := string(p.src[start:p.pos])
	n, ok := math.ParseBig256(text)
	if !ok {
		return nil, fmt.Errorf("invalid number: %q", text)
	}
	return n, nil
}

func member(value any, name string) (any, error) {
	ns, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("value of type %T has no properties", value)
	}
	v, ok := ns[name]
	if !ok {
		return nil, fmt.Errorf("unknown property %q", name)
	}
	return v, nil
}

func index(value, idx any) (any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("value of type %T is not indexable", value)
	}
	i, err := valueToInt(idx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(list) {
		return nil, fmt.Errorf("index %d out of range (%d elements)", i, len(list))
	}
	return list[i], nil
}

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isNumberPart(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == 'x' || c == 'X'
}
