// Package parser implements phase 2 of the SPL compiler (spec.md §4.2): a
// recursive-descent parser over the token slice that builds the AST.
// Structure follows the teacher's lang/yparse parser: a cursor over a
// token slice, one method per grammar production, Expect* helpers that
// return a typed error instead of panicking.
package parser

import (
	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/diag"
	"github.com/gmofishsauce/splc/internal/token"
)

// Parser holds parsing state over a fixed token slice produced by
// internal/lexer.
type Parser struct {
	toks []token.Token
	pos  int
}

// New creates a Parser over toks (which must end with a token.EOF, as
// internal/lexer.Lex guarantees).
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse parses the entire token stream into a Program, or returns the
// first syntax error (spec.md §7: parsing is fail-fast).
func Parse(toks []token.Token) (*ast.Program, error) {
	return New(toks).parseProgram()
}

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, diag.Syntaxf(diag.Line(p.cur().Line),
			"expected %s, got %s", k, p.cur())
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent() (token.Token, error) {
	if !p.at(token.Ident) {
		return token.Token{}, diag.Syntaxf(diag.Line(p.cur().Line),
			"expected identifier, got %s", p.cur())
	}
	return p.advance(), nil
}

// program = { typeDecl | procDecl } .
func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		var decl ast.Decl
		var err error
		switch {
		case p.at(token.KwType):
			decl, err = p.parseTypeDecl()
		case p.at(token.KwProc):
			decl, err = p.parseProcDecl()
		default:
			err = diag.Syntaxf(diag.Line(p.cur().Line),
				"expected 'type' or 'proc', got %s", p.cur())
		}
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decl)
	}
	return prog, nil
}

// typeDecl = "type" ident "=" type ";" .
func (p *Parser) parseTypeDecl() (*ast.TypeDecl, error) {
	line := p.cur().Line
	if _, err := p.expect(token.KwType); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Eq); err != nil {
		return nil, err
	}
	te, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.TypeDecl{Name: name.Text, TypeExpr: te, LineNo: line}, nil
}

// type = "array" "[" intLit "]" "of" type | ident .
func (p *Parser) parseType() (ast.TypeExpr, error) {
	line := p.cur().Line
	if p.at(token.KwArray) {
		p.advance()
		if _, err := p.expect(token.LBracket); err != nil {
			return nil, err
		}
		count, err := p.expect(token.IntLit)
		if err != nil {
			return nil, err
		}
		if count.IntVal <= 0 {
			return nil, diag.Syntaxf(diag.Line(line), "array length must be positive, got %d", count.IntVal)
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.KwOf); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ast.ArrayTypeExpr{Elem: elem, Count: count.IntVal, LineNo: line}, nil
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &ast.TypeNameRef{Name: name.Text, LineNo: line}, nil
}

// procDecl = "proc" ident "(" [ params ] ")" "{" { varDecl } { stmt } "}" .
func (p *Parser) parseProcDecl() (*ast.ProcDecl, error) {
	line := p.cur().Line
	if _, err := p.expect(token.KwProc); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []*ast.Param
	if !p.at(token.RParen) {
		params, err = p.parseParams()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	var locals []*ast.VarDecl
	for p.at(token.KwVar) {
		v, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		locals = append(locals, v)
	}

	bodyLine := p.cur().Line
	var stmts []ast.Stmt
	for !p.at(token.RBrace) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance() // consume '}'

	return &ast.ProcDecl{
		Name:     name.Text,
		Params:   params,
		Locals:   locals,
		Body:     &ast.StmtList{Stmts: stmts, LineNo: bodyLine},
		LineNo:   line,
		SymIndex: -1,
	}, nil
}

// params = param { "," param } .
func (p *Parser) parseParams() ([]*ast.Param, error) {
	var params []*ast.Param
	for {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	return params, nil
}

// param = [ "ref" ] ident ":" type .
func (p *Parser) parseParam() (*ast.Param, error) {
	line := p.cur().Line
	isRef := false
	if p.at(token.KwRef) {
		p.advance()
		isRef = true
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	te, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &ast.Param{Name: name.Text, IsRef: isRef, TypeExpr: te, LineNo: line}, nil
}

// varDecl = "var" ident ":" type ";" .
func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	line := p.cur().Line
	if _, err := p.expect(token.KwVar); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	te, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.VarDecl{Name: name.Text, TypeExpr: te, LineNo: line}, nil
}

// stmt = assign | if | while | call | block .
func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.at(token.LBrace):
		return p.parseBlock()
	case p.at(token.KwIf):
		return p.parseIf()
	case p.at(token.KwWhile):
		return p.parseWhile()
	case p.at(token.Ident):
		return p.parseAssignOrCall()
	default:
		return nil, diag.Syntaxf(diag.Line(p.cur().Line), "unexpected token %s at start of statement", p.cur())
	}
}

// block = "{" { stmt } "}" .
func (p *Parser) parseBlock() (*ast.StmtList, error) {
	line := p.cur().Line
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.at(token.RBrace) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance()
	return &ast.StmtList{Stmts: stmts, LineNo: line}, nil
}

// if = "if" "(" cmp ")" stmt [ "else" stmt ] .
func (p *Parser) parseIf() (*ast.IfStmt, error) {
	line := p.cur().Line
	p.advance() // 'if'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseComparison()
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
	var elseStmt ast.Stmt
	if p.at(token.KwElse) {
		p.advance()
		elseStmt, err = p.parseStmt()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: elseStmt, LineNo: line}, nil
}

// while = "while" "(" cmp ")" stmt .
func (p *Parser) parseWhile() (*ast.WhileStmt, error) {
	line := p.cur().Line
	p.advance() // 'while'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseComparison()
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
	return &ast.WhileStmt{Cond: cond, Body: body, LineNo: line}, nil
}

// assign = var ":=" expr ";" .
// call   = ident "(" [ expr { "," expr } ] ")" ";" .
// Both start with an identifier, so the decision is made by what follows
// the first var/ident: '(' means call, anything else (possibly after
// index brackets) means assignment.
func (p *Parser) parseAssignOrCall() (ast.Stmt, error) {
	line := p.cur().Line
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	if p.at(token.LParen) {
		return p.parseCallTail(name.Text, line)
	}

	v, err := p.parseVarTail(ast.NewNamedVar(name.Text, line))
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	lv := &ast.VarExpr{ExprBase: ast.NewExprBase(line), V: v}
	return &ast.AssignStmt{LValue: lv, RValue: rhs, LineNo: line}, nil
}

func (p *Parser) parseCallTail(callee string, line int) (*ast.CallStmt, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.at(token.RParen) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.at(token.Comma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.CallStmt{Callee: callee, Args: args, LineNo: line}, nil
}

// cmp = expr cmpOp expr .
func (p *Parser) parseComparison() (*ast.Comparison, error) {
	line := p.cur().Line
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.cur().Kind.IsCompareOp() {
		return nil, diag.Syntaxf(diag.Line(p.cur().Line), "expected comparison operator, got %s", p.cur())
	}
	op := p.advance().Kind
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Comparison{Op: op, LHS: lhs, RHS: rhs, LineNo: line}, nil
}

// expr = term { ("+"|"-") term } .
func (p *Parser) parseExpr() (ast.Expr, error) {
	line := p.cur().Line
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind.IsAddOp() {
		op := p.advance().Kind
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinExpr{ExprBase: ast.NewExprBase(line), Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

// term = factor { ("*"|"/") factor } .
func (p *Parser) parseTerm() (ast.Expr, error) {
	line := p.cur().Line
	lhs, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind.IsMulOp() {
		op := p.advance().Kind
		rhs, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinExpr{ExprBase: ast.NewExprBase(line), Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

// factor = intLit | charLit | var | "-" factor | "(" expr ")" .
func (p *Parser) parseFactor() (ast.Expr, error) {
	line := p.cur().Line
	switch {
	case p.at(token.IntLit) || p.at(token.CharLit):
		t := p.advance()
		return &ast.IntLit{ExprBase: ast.NewExprBase(line), Value: t.IntVal}, nil
	case p.at(token.Minus):
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryMinusExpr{ExprBase: ast.NewExprBase(line), Operand: operand}, nil
	case p.at(token.LParen):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case p.at(token.Ident):
		name, _ := p.expectIdent()
		v, err := p.parseVarTail(ast.NewNamedVar(name.Text, line))
		if err != nil {
			return nil, err
		}
		return &ast.VarExpr{ExprBase: ast.NewExprBase(line), V: v}, nil
	default:
		return nil, diag.Syntaxf(diag.Line(line), "unexpected token %s in expression", p.cur())
	}
}

// var = ident { "[" expr "]" } .
// parseVarTail consumes zero or more "[" expr "]" index suffixes applied
// to base, left-associatively (a[i][j] indexes the result of a[i]).
func (p *Parser) parseVarTail(base ast.Var) (ast.Var, error) {
	v := base
	for p.at(token.LBracket) {
		line := p.cur().Line
		p.advance()
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		v = &ast.IndexedVar{Base: v, Index: idx, LineNo: line}
	}
	return v, nil
}
