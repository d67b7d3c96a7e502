package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/lexer"
)

func (p *Parser) parseStmtList(end lexer.T) []ast.Stmt {
	var out []ast.Stmt
	for !p.at(end) && !p.at(lexer.TEndOfFile) {
		out = append(out, p.parseStmt())
	}
	return out
}

func (p *Parser) parseStmt() ast.Stmt {
	loc := p.loc()
	switch p.lex.Token.Kind {
	case lexer.TOpenBrace:
		return p.parseBlock()

	case lexer.TVar, lexer.TConst:
		kind := ast.DeclVar
		if p.lex.Token.Kind == lexer.TConst {
			kind = ast.DeclConst
		}
		p.lex.Next()
		decl := p.parseVarDecl(loc, kind)
		p.semicolon()
		return decl

	case lexer.TLet:
		// "let" is a contextual keyword: "let" followed by an identifier,
		// "[", or "{" is a declaration; otherwise it's a plain identifier
		// expression statement (e.g. "let(x)" calling a function named let
		// in sloppy mode -- not reachable in strict mode, kept simple here).
		snap := p.snapshot()
		p.lex.Next()
		if p.at(lexer.TIdentifier) || p.at(lexer.TOpenBracket) || p.at(lexer.TOpenBrace) {
			decl := p.parseVarDecl(loc, ast.DeclLet)
			p.semicolon()
			return decl
		}
		p.restore(snap)
		return p.parseExprStmt()

	case lexer.TIf:
		return p.parseIf(loc)

	case lexer.TFor:
		return p.parseFor(loc)

	case lexer.TWhile:
		p.lex.Next()
		p.expect(lexer.TOpenParen, "(")
		test := p.parseExpr(precLowest)
		p.expect(lexer.TCloseParen, ")")
		p.loopDepth++
		body := p.parseStmt()
		p.loopDepth--
		return &ast.SWhile{Test: test, Body: body}

	case lexer.TDo:
		p.lex.Next()
		p.loopDepth++
		body := p.parseStmt()
		p.loopDepth--
		p.expect(lexer.TWhile, "while")
		p.expect(lexer.TOpenParen, "(")
		test := p.parseExpr(precLowest)
		p.expect(lexer.TCloseParen, ")")
		if p.at(lexer.TSemicolon) {
			p.lex.Next()
		}
		return &ast.SDoWhile{Body: body, Test: test}

	case lexer.TReturn:
		p.lex.Next()
		var val ast.Expr
		if !p.at(lexer.TSemicolon) && !p.at(lexer.TCloseBrace) && !p.at(lexer.TEndOfFile) && !p.lex.Token.HasNewlineBefore {
			val = p.parseExpr(precLowest)
		}
		p.semicolon()
		return &ast.SReturn{Value: val}

	case lexer.TThrow:
		p.lex.Next()
		if p.lex.Token.HasNewlineBefore {
			p.fail("illegal newline after throw")
		}
		val := p.parseExpr(precLowest)
		p.semicolon()
		return &ast.SThrow{Value: val}

	case lexer.TBreak:
		p.lex.Next()
		var label intern.ID
		has := false
		if p.at(lexer.TIdentifier) && !p.lex.Token.HasNewlineBefore {
			label = p.name()
			has = true
		}
		p.semicolon()
		return &ast.SBreak{Label: label, HasLabel: has}

	case lexer.TContinue:
		p.lex.Next()
		var label intern.ID
		has := false
		if p.at(lexer.TIdentifier) && !p.lex.Token.HasNewlineBefore {
			label = p.name()
			has = true
		}
		p.semicolon()
		return &ast.SContinue{Label: label, HasLabel: has}

	case lexer.TTry:
		return p.parseTry(loc)

	case lexer.TWith:
		return p.parseWith(loc)

	case lexer.TSwitch:
		return p.parseSwitch(loc)

	case lexer.TFunction:
		fn, ref := p.parseFunctionDecl()
		return &ast.SFunction{Fn: fn, Ref: ref}

	case lexer.TClass:
		cls, ref := p.parseClassDecl()
		return &ast.SClass{Class: cls, Ref: ref}

	case lexer.TSemicolon:
		p.lex.Next()
		return &ast.SEmpty{}

	case lexer.TDebugger:
		p.lex.Next()
		p.semicolon()
		return &ast.SDebugger{}

	case lexer.TIdentifier:
		if p.lex.Token.Text == "async" {
			snap := p.snapshot()
			p.lex.Next()
			if p.at(lexer.TFunction) && !p.lex.Token.HasNewlineBefore {
				fn, ref := p.parseFunctionDecl()
				return &ast.SFunction{Fn: fn, Ref: ref}
			}
			p.restore(snap)
		}
		// "ident:" is a labelled statement.
		snap := p.snapshot()
		label := p.name()
		if p.at(lexer.TColon) {
			p.lex.Next()
			p.scope.DeclareLabel(label)
			body := p.parseStmt()
			return &ast.SLabel{Name: label, Body: body}
		}
		p.restore(snap)
		return p.parseExprStmt()

	default:
		return p.parseExprStmt()
	}
}

// parseWith parses the sloppy-mode `with (obj) body` statement; the
// early-error pass rejects it in strict code. The body gets a ScopeWith
// scope so every reference compiled inside it falls back to dynamic
// resolution (spec.md §4.3 scope poisoning).
func (p *Parser) parseWith(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	p.expect(lexer.TOpenParen, "(")
	obj := p.parseExpr(precLowest)
	p.expect(lexer.TCloseParen, ")")
	scope := p.pushScope(ast.ScopeWith)
	scope.MarkPoisoned()
	body := p.parseStmt()
	p.popScope()
	return &ast.SWith{Object: obj, Body: body, Scope: scope}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	e := p.parseExpr(precLowest)
	p.semicolon()
	return &ast.SExpr{Value: e}
}

func (p *Parser) parseBlock() *ast.SBlock {
	p.expect(lexer.TOpenBrace, "{")
	scope := p.pushScope(ast.ScopeBlock)
	body := p.parseStmtList(lexer.TCloseBrace)
	p.popScope()
	p.expect(lexer.TCloseBrace, "}")
	return &ast.SBlock{Body: body, Scope: scope}
}

func (p *Parser) parseVarDecl(loc ast.Loc, kind ast.DeclKind) *ast.SVarDecl {
	var decls []ast.Declarator
	for {
		binding := p.parseBindingTarget()
		p.declareBinding(&binding, kind)
		var val ast.Expr
		if p.at(lexer.TEquals) {
			p.lex.Next()
			val = p.parseAssign()
		}
		decls = append(decls, ast.Declarator{Binding: binding, Value: val})
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	return &ast.SVarDecl{Kind: kind, Decls: decls}
}

func (p *Parser) symbolKindFor(kind ast.DeclKind) ast.SymbolKind {
	switch kind {
	case ast.DeclLet:
		return ast.SymbolLet
	case ast.DeclConst:
		return ast.SymbolConst
	default:
		return ast.SymbolVar
	}
}

// declareBinding walks a (possibly destructuring) binding target and
// declares each leaf identifier in the current scope -- for "var" this
// should hoist to the enclosing function scope, which the bytecode
// compiler's separate hoisting pre-pass (not this parser) is responsible
// for relocating; the parser declares into the lexical scope it is
// currently in, matching esbuild's own two-stage hoist-then-bind pipeline.
func (p *Parser) declareBinding(b *ast.Binding, kind ast.DeclKind) {
	p.declareBindingAs(b, p.symbolKindFor(kind))
}

// declareParamBinding declares a parameter's leaves as SymbolFunctionArg,
// which the early-error pass distinguishes from body-level lexical
// declarations (duplicate simple parameters are legal in sloppy code;
// duplicate `let`s never are).
func (p *Parser) declareParamBinding(b *ast.Binding) {
	p.declareBindingAs(b, ast.SymbolFunctionArg)
}

func (p *Parser) declareBindingAs(b *ast.Binding, symKind ast.SymbolKind) {
	switch b.Kind {
	case ast.BindingIdentifier:
		idx := p.scope.Declare(b.Name, symKind)
		b.Ref = ast.Ref{ScopeID: p.scope.ID, SymbolIndex: idx, Valid: true}
	case ast.BindingArray, ast.BindingObject:
		for i := range b.Items {
			if b.Items[i].IsHole {
				continue
			}
			p.declareBindingAs(&b.Items[i].Value, symKind)
		}
		if b.Rest != nil {
			p.declareBindingAs(b.Rest, symKind)
		}
	}
}

func (p *Parser) parseIf(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	p.expect(lexer.TOpenParen, "(")
	test := p.parseExpr(precLowest)
	p.expect(lexer.TCloseParen, ")")
	yes := p.parseStmt()
	var no ast.Stmt
	if p.at(lexer.TElse) {
		p.lex.Next()
		no = p.parseStmt()
	}
	return &ast.SIf{Test: test, Yes: yes, No: no}
}

func (p *Parser) parseFor(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	isAwait := false
	if p.isIdentText("await") {
		isAwait = true
		p.lex.Next()
	}
	p.expect(lexer.TOpenParen, "(")
	scope := p.pushScope(ast.ScopeBlock)
	defer p.popScope()

	var initDecl *ast.SVarDecl
	var initExpr ast.Expr

	if !p.at(lexer.TSemicolon) {
		switch p.lex.Token.Kind {
		case lexer.TVar, lexer.TConst, lexer.TLet:
			kind := ast.DeclVar
			switch p.lex.Token.Kind {
			case lexer.TConst:
				kind = ast.DeclConst
			case lexer.TLet:
				kind = ast.DeclLet
			}
			p.lex.Next()
			binding := p.parseBindingTarget()
			if p.isIdentText("of") || p.at(lexer.TIn) {
				return p.finishForInOf(binding, kind, scope, isAwait)
			}
			p.declareBinding(&binding, kind)
			var val ast.Expr
			if p.at(lexer.TEquals) {
				p.lex.Next()
				val = p.parseAssign()
			}
			decls := []ast.Declarator{{Binding: binding, Value: val}}
			for p.at(lexer.TComma) {
				p.lex.Next()
				b2 := p.parseBindingTarget()
				p.declareBinding(&b2, kind)
				var v2 ast.Expr
				if p.at(lexer.TEquals) {
					p.lex.Next()
					v2 = p.parseAssign()
				}
				decls = append(decls, ast.Declarator{Binding: b2, Value: v2})
			}
			initDecl = &ast.SVarDecl{Kind: kind, Decls: decls}
		default:
			e := p.parseAssign() // stop before a trailing "," so a for-in/of head is recognized
			if p.isIdentText("of") || p.at(lexer.TIn) {
				return p.finishForInOfExpr(e, scope, isAwait)
			}
			for p.at(lexer.TComma) {
				p.lex.Next()
				e = &ast.EBinary{Op: ast.BinComma, Left: e, Right: p.parseAssign()}
			}
			initExpr = e
		}
	}

	if isAwait {
		p.fail("'for await' requires an of-loop head")
	}
	p.expect(lexer.TSemicolon, ";")
	var test ast.Expr
	if !p.at(lexer.TSemicolon) {
		test = p.parseExpr(precLowest)
	}
	p.expect(lexer.TSemicolon, ";")
	var update ast.Expr
	if !p.at(lexer.TCloseParen) {
		update = p.parseExpr(precLowest)
	}
	p.expect(lexer.TCloseParen, ")")

	p.loopDepth++
	body := p.parseStmt()
	p.loopDepth--

	var initStmt ast.Stmt
	if initDecl != nil {
		initStmt = initDecl
	} else if initExpr != nil {
		initStmt = &ast.SExpr{Value: initExpr}
	}
	return &ast.SFor{Init: initStmt, Test: test, Update: update, Body: body, Scope: scope}
}

func (p *Parser) finishForInOf(binding ast.Binding, kind ast.DeclKind, scope *ast.Scope, isAwait bool) ast.Stmt {
	fk := p.forInOfKind(isAwait)
	p.lex.Next()
	p.declareBinding(&binding, kind)
	subject := p.parseAssign()
	p.expect(lexer.TCloseParen, ")")
	p.loopDepth++
	body := p.parseStmt()
	p.loopDepth--
	return &ast.SForInOf{Kind: fk, Decl: &ast.SVarDecl{Kind: kind, Decls: []ast.Declarator{{Binding: binding}}}, Subject: subject, Body: body, Scope: scope}
}

func (p *Parser) finishForInOfExpr(target ast.Expr, scope *ast.Scope, isAwait bool) ast.Stmt {
	fk := p.forInOfKind(isAwait)
	p.lex.Next()
	subject := p.parseAssign()
	p.expect(lexer.TCloseParen, ")")
	p.loopDepth++
	body := p.parseStmt()
	p.loopDepth--
	return &ast.SForInOf{Kind: fk, Target: target, Subject: subject, Body: body, Scope: scope}
}

// forInOfKind classifies the loop head at the of/in keyword; `for await`
// pairs only with `of` (spec.md §4.3 for-await-of).
func (p *Parser) forInOfKind(isAwait bool) ast.ForInOfKind {
	isOf := p.isIdentText("of")
	if isAwait {
		if !isOf {
			p.fail("'for await' requires an of-loop head")
		}
		return ast.ForOfAwait
	}
	if isOf {
		return ast.ForOf
	}
	return ast.ForIn
}

func (p *Parser) parseTry(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	p.expect(lexer.TOpenBrace, "{")
	tryScope := p.pushScope(ast.ScopeBlock)
	body := p.parseStmtList(lexer.TCloseBrace)
	p.popScope()
	p.expect(lexer.TCloseBrace, "}")

	var catch *ast.CatchClause
	if p.at(lexer.TCatch) {
		p.lex.Next()
		c := &ast.CatchClause{}
		scope := p.pushScope(ast.ScopeCatch)
		if p.at(lexer.TOpenParen) {
			p.lex.Next()
			c.Binding = p.parseBindingTarget()
			p.declareBinding(&c.Binding, ast.DeclLet)
			c.HasBinding = true
			p.expect(lexer.TCloseParen, ")")
		}
		p.expect(lexer.TOpenBrace, "{")
		c.Body = p.parseStmtList(lexer.TCloseBrace)
		p.expect(lexer.TCloseBrace, "}")
		c.Scope = scope
		p.popScope()
		catch = c
	}

	var finallyBody []ast.Stmt
	var finallyScope *ast.Scope
	if p.at(lexer.TFinally) {
		p.lex.Next()
		p.expect(lexer.TOpenBrace, "{")
		finallyScope = p.pushScope(ast.ScopeBlock)
		finallyBody = p.parseStmtList(lexer.TCloseBrace)
		p.popScope()
		p.expect(lexer.TCloseBrace, "}")
	}

	if catch == nil && finallyBody == nil {
		p.fail("missing catch or finally after try")
	}

	return &ast.STry{Body: body, Catch: catch, Finally: finallyBody, TryScope: tryScope, FinallyScope: finallyScope}
}

func (p *Parser) parseSwitch(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	p.expect(lexer.TOpenParen, "(")
	test := p.parseExpr(precLowest)
	p.expect(lexer.TCloseParen, ")")
	p.expect(lexer.TOpenBrace, "{")
	scope := p.pushScope(ast.ScopeBlock)
	p.switchDepth++
	var cases []ast.SwitchCase
	for !p.at(lexer.TCloseBrace) && !p.at(lexer.TEndOfFile) {
		var c ast.SwitchCase
		if p.at(lexer.TCase) {
			p.lex.Next()
			e := p.parseExpr(precLowest)
			c.Test = &e
		} else {
			p.expect(lexer.TDefault, "default")
		}
		p.expect(lexer.TColon, ":")
		for !p.at(lexer.TCase) && !p.at(lexer.TDefault) && !p.at(lexer.TCloseBrace) && !p.at(lexer.TEndOfFile) {
			c.Body = append(c.Body, p.parseStmt())
		}
		cases = append(cases, c)
	}
	p.switchDepth--
	p.popScope()
	p.expect(lexer.TCloseBrace, "}")
	return &ast.SSwitch{Test: test, Cases: cases, Scope: scope}
}
