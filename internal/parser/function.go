package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/lexer"
)

// parseFunctionDecl parses "function name(...) {...}" (or "async
// function"/"function*"/"async function*"), declaring name in the
// enclosing scope, per spec.md §4.2's function-declaration hoisting.
func (p *Parser) parseFunctionDecl() (*ast.Fn, ast.Ref) {
	start := p.lex.Token.Start
	isAsync := false
	if p.isIdentText("async") {
		isAsync = true
		p.lex.Next()
	}
	p.expect(lexer.TFunction, "function")
	isGen := false
	if p.at(lexer.TAsterisk) {
		isGen = true
		p.lex.Next()
	}
	name := p.name()
	idx := p.scope.Declare(name, ast.SymbolFunctionName)
	ref := ast.Ref{ScopeID: p.scope.ID, SymbolIndex: idx, Valid: true}
	fn := p.parseFunctionRest(name, true, isAsync, isGen)
	fn.SourceStart = start
	return fn, ref
}

func (p *Parser) parseFunctionExpr(isAsync bool) *ast.Fn {
	start := p.lex.Token.Start
	p.expect(lexer.TFunction, "function")
	isGen := false
	if p.at(lexer.TAsterisk) {
		isGen = true
		p.lex.Next()
	}
	var name intern.ID
	hasName := false
	if p.at(lexer.TIdentifier) {
		name = p.name()
		hasName = true
	}
	fn := p.parseFunctionRest(name, hasName, isAsync, isGen)
	fn.SourceStart = start
	return fn
}

func (p *Parser) parseFunctionRest(name intern.ID, hasName, isAsync, isGen bool) *ast.Fn {
	scope := p.pushScope(ast.ScopeFunction)
	if hasName {
		scope.Declare(name, ast.SymbolFunctionName)
	}
	// The implicit `arguments` binding comes first so any parameter or body
	// declaration of the same name shadows it in the by-name table.
	scope.Declare(p.interner.Intern("arguments"), ast.SymbolArguments)
	params := p.parseParamList()
	p.fnDepth++
	if isGen {
		p.genDepth++
	}
	if isAsync {
		p.asyncDepth++
	}
	p.expect(lexer.TOpenBrace, "{")
	body := p.parseStmtList(lexer.TCloseBrace)
	end := p.lex.Token.End
	p.expect(lexer.TCloseBrace, "}")
	if isAsync {
		p.asyncDepth--
	}
	if isGen {
		p.genDepth--
	}
	p.fnDepth--
	p.popScope()

	flags := ast.FunctionFlags(0)
	if isAsync {
		flags |= ast.FnAsync
	}
	if isGen {
		flags |= ast.FnGenerator
	}
	return &ast.Fn{Name: name, HasName: hasName, Params: params, Body: body, Flags: flags, Scope: scope, SourceEnd: end}
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(lexer.TOpenParen, "(")
	var params []ast.Param
	for !p.at(lexer.TCloseParen) {
		if p.at(lexer.TDotDotDot) {
			p.lex.Next()
			b := p.parseBindingTarget()
			p.declareParamBinding(&b)
			params = append(params, ast.Param{Binding: b, IsRest: true})
			break
		}
		b := p.parseBindingTarget()
		p.declareParamBinding(&b)
		var def ast.Expr
		if p.at(lexer.TEquals) {
			p.lex.Next()
			def = p.parseAssign()
		}
		params = append(params, ast.Param{Binding: b, Default: def})
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseParen, ")")
	return params
}

// parseMethodTail parses a method/getter/setter's parameter list and body
// once its key has already been consumed by the caller (object literal or
// class body parsing).
func (p *Parser) parseMethodTail(isAsync, isGen bool) *ast.Fn {
	scope := p.pushScope(ast.ScopeFunction)
	scope.Declare(p.interner.Intern("arguments"), ast.SymbolArguments)
	params := p.parseParamList()
	if isGen {
		p.genDepth++
	}
	if isAsync {
		p.asyncDepth++
	}
	p.expect(lexer.TOpenBrace, "{")
	body := p.parseStmtList(lexer.TCloseBrace)
	p.expect(lexer.TCloseBrace, "}")
	if isAsync {
		p.asyncDepth--
	}
	if isGen {
		p.genDepth--
	}
	p.popScope()
	flags := ast.FnMethod
	if isAsync {
		flags |= ast.FnAsync
	}
	if isGen {
		flags |= ast.FnGenerator
	}
	return &ast.Fn{Params: params, Body: body, Flags: flags, Scope: scope}
}

// ---- Classes ----

func (p *Parser) parseClassDecl() (*ast.Class, ast.Ref) {
	p.expect(lexer.TClass, "class")
	name := p.name()
	idx := p.scope.Declare(name, ast.SymbolClassName)
	ref := ast.Ref{ScopeID: p.scope.ID, SymbolIndex: idx, Valid: true}
	cls := p.parseClassRest(name, true)
	return cls, ref
}

func (p *Parser) parseClassExpr() *ast.Class {
	p.expect(lexer.TClass, "class")
	var name intern.ID
	hasName := false
	if p.at(lexer.TIdentifier) {
		name = p.name()
		hasName = true
	}
	return p.parseClassRest(name, hasName)
}

func (p *Parser) parseClassRest(name intern.ID, hasName bool) *ast.Class {
	var super ast.Expr
	if p.at(lexer.TExtends) {
		p.lex.Next()
		super = p.parseCallChain(p.parsePrimary())
	}
	scope := p.pushScope(ast.ScopeClass)
	if hasName {
		// The class's own name binds inside the body too, so methods can
		// reference it even when the outer binding is shadowed.
		scope.Declare(name, ast.SymbolClassName)
	}
	p.expect(lexer.TOpenBrace, "{")
	var elements []ast.ClassElement
	for !p.at(lexer.TCloseBrace) {
		if p.at(lexer.TSemicolon) {
			p.lex.Next()
			continue
		}
		elements = append(elements, p.parseClassElement())
	}
	p.expect(lexer.TCloseBrace, "}")
	p.popScope()
	return &ast.Class{Name: name, HasName: hasName, Super: super, Elements: elements, Scope: scope}
}

func (p *Parser) parseClassElement() ast.ClassElement {
	isStatic := false
	if p.isIdentText("static") {
		snap := p.snapshot()
		p.lex.Next()
		if p.at(lexer.TOpenBrace) {
			p.lex.Next()
			body := p.parseStmtList(lexer.TCloseBrace)
			p.expect(lexer.TCloseBrace, "}")
			return ast.ClassElement{Kind: ast.ElementStaticBlock, Static: true, Body: body}
		}
		if !p.canEndPropertyKey() && !p.at(lexer.TEquals) {
			isStatic = true
		} else {
			p.restore(snap)
		}
	}

	isAsync, isGen := false, false
	if p.isIdentText("async") {
		snap := p.snapshot()
		p.lex.Next()
		if !p.canEndPropertyKey() && !p.lex.Token.HasNewlineBefore {
			isAsync = true
		} else {
			p.restore(snap)
		}
	}
	if p.at(lexer.TAsterisk) {
		isGen = true
		p.lex.Next()
	}

	kind := ast.ElementMethod
	if (p.isIdentText("get") || p.isIdentText("set")) && !isAsync && !isGen {
		snap := p.snapshot()
		isGet := p.isIdentText("get")
		p.lex.Next()
		if !p.canEndPropertyKey() {
			if isGet {
				kind = ast.ElementGet
			} else {
				kind = ast.ElementSet
			}
		} else {
			p.restore(snap)
		}
	}

	private := p.at(lexer.TPrivateIdentifier)
	key, computed := p.parsePropertyKey()

	if p.at(lexer.TOpenParen) {
		fn := p.parseMethodTail(isAsync, isGen)
		return ast.ClassElement{Kind: kind, Key: key, Computed: computed, Private: private, Static: isStatic, Value: &ast.EFunction{Fn: fn}}
	}

	// Field declaration, with or without an initializer.
	var init ast.Expr
	if p.at(lexer.TEquals) {
		p.lex.Next()
		init = p.parseAssign()
	}
	p.semicolon()
	return ast.ClassElement{Kind: ast.ElementField, Key: key, Computed: computed, Private: private, Static: isStatic, Value: init}
}
