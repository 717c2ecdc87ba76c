// Package parser implements a recursive-descent, precedence-climbing
// parser for MiniC, producing an internal/ast.Program.
//
// Grounded on original_source/src/parser.cpp's parse_expr/prec/
// tok_to_binary precedence-climbing shape, generalized to the full MiniC
// grammar (functions, blocks, if/else, while, break/continue, var decls,
// calls) that the original's fragment only sketches.
package parser

import (
	"errors"
	"fmt"

	"github.com/minic-lang/minicc/internal/ast"
	"github.com/minic-lang/minicc/internal/lexer"
	"github.com/minic-lang/minicc/internal/token"
)

// Fixed parse-error messages, part of the taxonomy in spec.md §7.
var (
	ErrExpectedType  = errors.New("expected type")
	ErrExpectedExpr  = errors.New("expected expr")
	ErrExpectedStmt  = errors.New("expected statement")
	ErrExpectedToken = errors.New("unexpected token")
)

func expectedErr(want token.Kind, got token.Token) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrExpectedToken, want, got.Kind)
}

// Parser turns a token stream into an ast.Program.
type Parser struct {
	lex  *lexer.Lexer
	buf  []token.Token
	bErr error
}

// Parse is the package entry point: it parses src in full.
func Parse(src string) (ast.Program, error) {
	p := &Parser{lex: lexer.New(src)}
	return p.parseProgram()
}

// fill ensures at least n tokens are buffered for lookahead.
func (p *Parser) fill(n int) error {
	for len(p.buf) < n {
		if p.bErr != nil {
			return p.bErr
		}
		tok, err := p.lex.Next()
		if err != nil {
			p.bErr = err
			return err
		}
		p.buf = append(p.buf, tok)
	}
	return nil
}

func (p *Parser) peek() (token.Token, error) {
	if err := p.fill(1); err != nil {
		return token.Token{}, err
	}
	return p.buf[0], nil
}

func (p *Parser) peek2() (token.Token, error) {
	if err := p.fill(2); err != nil {
		return token.Token{}, err
	}
	return p.buf[1], nil
}

func (p *Parser) next() (token.Token, error) {
	if err := p.fill(1); err != nil {
		return token.Token{}, err
	}
	tok := p.buf[0]
	p.buf = p.buf[1:]
	return tok, nil
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	tok, err := p.next()
	if err != nil {
		return token.Token{}, err
	}
	if tok.Kind != k {
		return token.Token{}, expectedErr(k, tok)
	}
	return tok, nil
}

func isTypeStart(k token.Kind) bool {
	return k == token.KwInt || k == token.KwVoid
}

func (p *Parser) parseType() (ast.Type, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	switch tok.Kind {
	case token.KwInt:
		return ast.Int, nil
	case token.KwVoid:
		return ast.Void, nil
	default:
		return 0, fmt.Errorf("%w: got %s", ErrExpectedType, tok.Kind)
	}
}

func (p *Parser) parseProgram() (ast.Program, error) {
	var prog ast.Program
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Program{}, err
		}
		if tok.Kind == token.EOF {
			break
		}
		g, err := p.parseGlobal()
		if err != nil {
			return ast.Program{}, err
		}
		prog.Globals = append(prog.Globals, g)
	}
	return prog, nil
}

// parseGlobal parses either a function definition or a top-level
// (possibly const) variable declaration.
func (p *Parser) parseGlobal() (ast.Global, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	isConst := tok.Kind == token.KwConst
	if isConst {
		if _, err := p.next(); err != nil {
			return nil, err
		}
	}

	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}

	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	next, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !isConst && next.Kind == token.LParen {
		return p.parseFuncRest(typ, nameTok.Ident)
	}

	decl, err := p.parseVarDeclRest(isConst, typ, nameTok.Ident)
	if err != nil {
		return nil, err
	}
	return &decl, nil
}

func (p *Parser) parseFuncRest(rettype ast.Type, name string) (*ast.Func, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Param
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.RParen {
		for {
			argType, err := p.parseType()
			if err != nil {
				return nil, err
			}
			argName, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			args = append(args, ast.Param{Type: argType, Name: argName.Ident})

			tok, err := p.peek()
			if err != nil {
				return nil, err
			}
			if tok.Kind == token.Comma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Func{RetType: rettype, Name: name, Args: args, Body: body}, nil
}

// parseVarDeclRest parses the def-list tail of a var/const declaration
// given that `type name` has already been consumed.
func (p *Parser) parseVarDeclRest(isConst bool, typ ast.Type, firstName string) (ast.VarDecl, error) {
	decl := ast.VarDecl{IsConst: isConst, Type: typ}
	name := firstName
	for {
		def := ast.VarDef{Name: name}
		tok, err := p.peek()
		if err != nil {
			return ast.VarDecl{}, err
		}
		if tok.Kind == token.Assign {
			p.next()
			expr, err := p.parseExpr(0)
			if err != nil {
				return ast.VarDecl{}, err
			}
			def.Init = expr
		}
		decl.Defs = append(decl.Defs, def)

		tok, err = p.peek()
		if err != nil {
			return ast.VarDecl{}, err
		}
		if tok.Kind == token.Comma {
			p.next()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return ast.VarDecl{}, err
			}
			name = nameTok.Ident
			continue
		}
		break
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return ast.VarDecl{}, err
	}
	return decl, nil
}

func (p *Parser) parseBlock() (ast.Block, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var block ast.Block
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.RBrace {
			break
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block = append(block, stmt)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case token.Semicolon:
		p.next()
		return ast.EmptyStmt{}, nil
	case token.LBrace:
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{Body: body}, nil
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwBreak:
		p.next()
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return ast.BreakStmt{}, nil
	case token.KwContinue:
		p.next()
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return ast.ContinueStmt{}, nil
	case token.KwReturn:
		return p.parseReturn()
	case token.KwConst, token.KwInt, token.KwVoid:
		return p.parseLocalVarDeclStmt()
	case token.Ident:
		return p.parseIdentStartStmt()
	default:
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, fmt.Errorf("%w", ErrExpectedStmt)
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Value: expr}, nil
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	p.next() // 'if'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == token.KwElse {
		p.next()
		els, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return &ast.IfElseStmt{Cond: cond, Then: then, Else: els}, nil
	}
	return &ast.IfStmt{Cond: cond, Then: then}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	p.next() // 'while'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	p.next() // 'return'
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == token.Semicolon {
		p.next()
		return &ast.ReturnStmt{}, nil
	}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: expr}, nil
}

func (p *Parser) parseLocalVarDeclStmt() (ast.Stmt, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	isConst := tok.Kind == token.KwConst
	if isConst {
		p.next()
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	decl, err := p.parseVarDeclRest(isConst, typ, nameTok.Ident)
	if err != nil {
		return nil, err
	}
	return &ast.VarDeclStmt{Decl: decl}, nil
}

// parseIdentStartStmt disambiguates `ident = expr;` from a bare expression
// statement via one extra token of lookahead.
func (p *Parser) parseIdentStartStmt() (ast.Stmt, error) {
	second, err := p.peek2()
	if err != nil {
		return nil, err
	}
	if second.Kind == token.Assign {
		nameTok, _ := p.next()
		p.next() // '='
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Name: nameTok.Ident, Value: value}, nil
	}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Value: expr}, nil
}

// binPrec returns the precedence of a binary operator token, or -1 if it is
// not one. Higher binds tighter; this is the precedence-climbing table
// from original_source/src/parser.cpp, extended to the full operator set.
func binPrec(k token.Kind) int {
	switch k {
	case token.Star, token.Slash, token.Percent:
		return 5
	case token.Plus, token.Minus:
		return 4
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		return 3
	case token.Eq, token.NotEq:
		return 2
	case token.AndAnd:
		return 1
	case token.OrOr:
		return 0
	default:
		return -1
	}
}

var binOps = map[token.Kind]ast.BinaryOp{
	token.Plus:    ast.Plus,
	token.Minus:   ast.Minus,
	token.Star:    ast.Mult,
	token.Slash:   ast.Div,
	token.Percent: ast.Mod,
	token.Lt:      ast.Lt,
	token.LtEq:    ast.LtEq,
	token.Gt:      ast.Gt,
	token.GtEq:    ast.GtEq,
	token.Eq:      ast.Eq,
	token.NotEq:   ast.Neq,
	token.AndAnd:  ast.And,
	token.OrOr:    ast.Or,
}

// parseExpr implements precedence climbing: it parses a unary expression
// then consumes binary operators with precedence greater than or equal to
// minPrec, recursing on the right-hand side with that operator's
// precedence.
func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		prec := binPrec(tok.Kind)
		if prec < minPrec {
			break
		}
		p.next()
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinaryExpr{Op: binOps[tok.Kind], LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case token.Plus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.Pos, Operand: operand}, nil
	case token.Minus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.Neg, Operand: operand}, nil
	case token.Not:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.Not, Operand: operand}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case token.Number:
		return &ast.NumberExpr{Value: tok.Number}, nil
	case token.LParen:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	case token.Ident:
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == token.LParen {
			p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{Func: tok.Ident, Args: args}, nil
		}
		return &ast.IdentExpr{Name: tok.Ident}, nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrExpectedExpr, tok.Kind)
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == token.RParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return args, nil
}
