package parser

import (
	"github.com/wudi/microphp/ast"
	"github.com/wudi/microphp/errors"
	"github.com/wudi/microphp/lexer"
)

// parseExpression enters at the lowest-precedence production
// (assignment) per the grammar sketch in §4.4.
func (p *Parser) parseExpression() (ast.Node, error) {
	return p.parseAssignment()
}

var assignOps = map[lexer.TokenType]string{
	lexer.ASSIGN:         "=",
	lexer.PLUS_ASSIGN:    "+=",
	lexer.MINUS_ASSIGN:   "-=",
	lexer.STAR_ASSIGN:    "*=",
	lexer.SLASH_ASSIGN:   "/=",
	lexer.PERCENT_ASSIGN: "%=",
}

// assignment := ternary [ ("="|"+="|...) assignment ] -- right-associative.
func (p *Parser) parseAssignment() (ast.Node, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.cur().Type]; ok {
		start := p.cur().Position
		p.advance()
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		switch left.(type) {
		case *ast.Identifier, *ast.IndexExpr:
		default:
			return nil, errors.NewSyntax("invalid assignment target", start)
		}
		return &ast.AssignExpr{NodeBase: ast.NodeBase{Position: start}, Op: op, Target: left, Value: value}, nil
	}
	return left, nil
}

// ternary := logic-or [ "?" expression ":" expression ]
func (p *Parser) parseTernary() (ast.Node, error) {
	cond, err := p.parseLogicOr()
	if err != nil {
		return nil, err
	}
	if p.check(lexer.QUESTION) {
		start := p.cur().Position
		p.advance()
		thenExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		elseExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.TernaryExpr{NodeBase: ast.NodeBase{Position: start}, Cond: cond, Then: thenExpr, Else: elseExpr}, nil
	}
	return cond, nil
}

// binaryLevel parses a single left-associative precedence level: each
// of logic-or/logic-and/equality/relational/additive/multiplicative is
// this same shape with a different next() and operator set.
func (p *Parser) binaryLevel(next func() (ast.Node, error), ops map[lexer.TokenType]string) (ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.cur().Type]
		if !ok {
			return left, nil
		}
		start := p.cur().Position
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{NodeBase: ast.NodeBase{Position: start}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseLogicOr() (ast.Node, error) {
	return p.binaryLevel(p.parseLogicAnd, map[lexer.TokenType]string{lexer.OR: "||"})
}

func (p *Parser) parseLogicAnd() (ast.Node, error) {
	return p.binaryLevel(p.parseEquality, map[lexer.TokenType]string{lexer.AND: "&&"})
}

func (p *Parser) parseEquality() (ast.Node, error) {
	return p.binaryLevel(p.parseRelational, map[lexer.TokenType]string{
		lexer.EQ: "==", lexer.NEQ: "!=",
	})
}

func (p *Parser) parseRelational() (ast.Node, error) {
	return p.binaryLevel(p.parseAdditive, map[lexer.TokenType]string{
		lexer.LT: "<", lexer.LTE: "<=", lexer.GT: ">", lexer.GTE: ">=",
	})
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	return p.binaryLevel(p.parseMultiplicative, map[lexer.TokenType]string{
		lexer.PLUS: "+", lexer.MINUS: "-", lexer.DOT: ".",
	})
}

func (p *Parser) parseMultiplicative() (ast.Node, error) {
	return p.binaryLevel(p.parseUnary, map[lexer.TokenType]string{
		lexer.STAR: "*", lexer.SLASH: "/", lexer.PERCENT: "%",
	})
}

// unary := ("!"|"-"|"++"|"--") unary | postfix
func (p *Parser) parseUnary() (ast.Node, error) {
	switch p.cur().Type {
	case lexer.NOT, lexer.MINUS, lexer.INCREMENT, lexer.DECREMENT:
		op := p.cur().Literal
		start := p.cur().Position
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{NodeBase: ast.NodeBase{Position: start}, Op: op, Operand: operand}, nil
	default:
		return p.parsePostfix()
	}
}

// postfix := primary { "(" args ")" | "[" expression "]" | "++" | "--" }
func (p *Parser) parsePostfix() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case lexer.LPAREN:
			ident, ok := expr.(*ast.Identifier)
			if !ok {
				return nil, errors.NewSyntax("only named functions can be called", p.cur().Position)
			}
			start := p.cur().Position
			p.advance()
			var args []ast.Node
			for !p.check(lexer.RPAREN) {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.check(lexer.COMMA) {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{NodeBase: ast.NodeBase{Position: start}, Callee: ident.Name, Args: args}
		case lexer.LBRACKET:
			start := p.cur().Position
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{NodeBase: ast.NodeBase{Position: start}, Target: expr, Index: idx}
		case lexer.INCREMENT, lexer.DECREMENT:
			start := p.cur().Position
			op := p.cur().Literal
			p.advance()
			expr = &ast.PostfixExpr{NodeBase: ast.NodeBase{Position: start}, Op: op, Operand: expr}
		default:
			return expr, nil
		}
	}
}

// primary := INT | FLOAT | STRING | "true" | "false" | "null" | IDENT
//          | "(" expression ")" | "[" [args] "]"
func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		return &ast.IntLiteral{NodeBase: ast.NodeBase{Position: tok.Position}, Value: parseIntLiteral(tok.Literal)}, nil
	case lexer.FLOAT:
		p.advance()
		return &ast.FloatLiteral{NodeBase: ast.NodeBase{Position: tok.Position}, Value: parseFloatLiteral(tok.Literal)}, nil
	case lexer.STRING:
		p.advance()
		return &ast.StringLiteral{NodeBase: ast.NodeBase{Position: tok.Position}, Value: resolveEscapes(tok.Literal)}, nil
	case lexer.KW_TRUE:
		p.advance()
		return &ast.BoolLiteral{NodeBase: ast.NodeBase{Position: tok.Position}, Value: true}, nil
	case lexer.KW_FALSE:
		p.advance()
		return &ast.BoolLiteral{NodeBase: ast.NodeBase{Position: tok.Position}, Value: false}, nil
	case lexer.KW_NULL:
		p.advance()
		return &ast.NullLiteral{NodeBase: ast.NodeBase{Position: tok.Position}}, nil
	case lexer.KW_PRINT, lexer.KW_SLEEP_MS, lexer.KW_MILLIS:
		// These keywords double as callable built-in names.
		p.advance()
		return &ast.Identifier{NodeBase: ast.NodeBase{Position: tok.Position}, Name: tok.Literal}, nil
	case lexer.IDENT:
		p.advance()
		return &ast.Identifier{NodeBase: ast.NodeBase{Position: tok.Position}, Name: tok.Literal}, nil
	case lexer.LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.LBRACKET:
		p.advance()
		lit := &ast.ArrayLiteral{NodeBase: ast.NodeBase{Position: tok.Position}}
		for !p.check(lexer.RBRACKET) {
			el, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, el)
			if p.check(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return lit, nil
	default:
		return nil, errors.NewSyntax("unexpected token "+tok.Type.String()+" \""+tok.Literal+"\"", tok.Position)
	}
}
