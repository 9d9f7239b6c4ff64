// Package parser implements the recursive-descent parser of §4.4: it
// consumes the lexer's token stream and builds an ast.Program. All
// cursor state lives on the Parser value — no hidden globals — per the
// "global mutable state in token iteration" design note in §9.
package parser

import (
	"fmt"

	"github.com/wudi/microphp/ast"
	"github.com/wudi/microphp/errors"
	"github.com/wudi/microphp/lexer"
)

// Parser holds an explicit cursor over a pre-scanned token slice.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse lexes src fully, then parses the resulting tokens into a Program.
func Parse(src string) (*ast.Program, error) {
	l := lexer.New(src)
	var toks []lexer.Token
	for {
		tok, err := l.Next()
		if err != nil {
			if lerr, ok := err.(*lexer.LexError); ok {
				return nil, errors.NewLexical(lerr.Message, lerr.Position)
			}
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}
	p := &Parser{tokens: toks}
	return p.parseProgram()
}

func (p *Parser) cur() lexer.Token  { return p.tokens[p.pos] }
func (p *Parser) peek() lexer.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}
func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(t lexer.TokenType) bool { return p.cur().Type == t }

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if !p.check(t) {
		return lexer.Token{}, errors.NewSyntax(
			fmt.Sprintf("expected %s, got %s %q", t, p.cur().Type, p.cur().Literal),
			p.cur().Position)
	}
	return p.advance(), nil
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.check(lexer.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.cur().Type {
	case lexer.KW_VAR, lexer.KW_CONST:
		return p.parseVarDecl()
	case lexer.KW_IF:
		return p.parseIf()
	case lexer.KW_WHILE:
		return p.parseWhile()
	case lexer.KW_FOR:
		return p.parseFor()
	case lexer.KW_FUNCTION:
		return p.parseFuncDef()
	case lexer.KW_RETURN:
		return p.parseReturn()
	case lexer.KW_ECHO:
		return p.parseEcho()
	case lexer.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseVarDecl() (ast.Node, error) {
	start := p.cur().Position
	isConst := p.cur().Type == lexer.KW_CONST
	p.advance()
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	var init ast.Node
	if p.check(lexer.ASSIGN) {
		p.advance()
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.VarDecl{NodeBase: ast.NodeBase{Position: start}, Name: name.Literal, Init: init, Const: isConst}, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	start := p.cur().Position
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	blk := &ast.Block{NodeBase: ast.NodeBase{Position: start}}
	for !p.check(lexer.RBRACE) {
		if p.check(lexer.EOF) {
			return nil, errors.NewSyntax("unterminated block: missing }", p.cur().Position)
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Statements = append(blk.Statements, stmt)
	}
	p.advance()
	return blk, nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	start := p.cur().Position
	p.advance()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{NodeBase: ast.NodeBase{Position: start}, Cond: cond, Then: then}
	if p.check(lexer.KW_ELSE) {
		p.advance()
		elseStmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseStmt
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	start := p.cur().Position
	p.advance()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{NodeBase: ast.NodeBase{Position: start}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Node, error) {
	start := p.cur().Position
	p.advance()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var init, cond, post ast.Node
	var err error
	if !p.check(lexer.SEMICOLON) {
		init, err = p.parseForInit()
		if err != nil {
			return nil, err
		}
	} else {
		p.advance()
	}
	if !p.check(lexer.SEMICOLON) {
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	if !p.check(lexer.RPAREN) {
		post, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{NodeBase: ast.NodeBase{Position: start}, Init: init, Cond: cond, Post: post, Body: body}, nil
}

// parseForInit parses the for-loop init clause: a var-decl or a plain
// expression, each consuming its own trailing semicolon so the caller
// never needs to know which kind it got.
func (p *Parser) parseForInit() (ast.Node, error) {
	if p.check(lexer.KW_VAR) || p.check(lexer.KW_CONST) {
		return p.parseVarDecl()
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parseFuncDef() (ast.Node, error) {
	start := p.cur().Position
	p.advance()
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for !p.check(lexer.RPAREN) {
		id, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, id.Literal)
		if p.check(lexer.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{NodeBase: ast.NodeBase{Position: start}, Name: name.Literal, Params: params, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	start := p.cur().Position
	p.advance()
	var val ast.Node
	if !p.check(lexer.SEMICOLON) {
		var err error
		val, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{NodeBase: ast.NodeBase{Position: start}, Value: val}, nil
}

func (p *Parser) parseEcho() (ast.Node, error) {
	start := p.cur().Position
	p.advance()
	var args []ast.Node
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.check(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.EchoStmt{NodeBase: ast.NodeBase{Position: start}, Args: args}, nil
}

func (p *Parser) parseExprStmt() (ast.Node, error) {
	start := p.cur().Position
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{NodeBase: ast.NodeBase{Position: start}, Expr: expr}, nil
}
