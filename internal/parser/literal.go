package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/lexer"
)

func (p *Parser) parseArrayLiteral() ast.Expr {
	p.expect(lexer.TOpenBracket, "[")
	var items []ast.Expr
	for !p.at(lexer.TCloseBracket) {
		if p.at(lexer.TComma) {
			items = append(items, nil) // elision
			p.lex.Next()
			continue
		}
		if p.at(lexer.TDotDotDot) {
			p.lex.Next()
			items = append(items, &ast.ESpread{Value: p.parseAssign()})
		} else {
			items = append(items, p.parseAssign())
		}
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseBracket, "]")
	return &ast.EArray{Items: items}
}

func (p *Parser) parseObjectLiteral() ast.Expr {
	p.expect(lexer.TOpenBrace, "{")
	var props []ast.ObjectProperty
	for !p.at(lexer.TCloseBrace) {
		props = append(props, p.parseObjectProperty())
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseBrace, "}")
	return &ast.EObject{Properties: props}
}

func (p *Parser) parseObjectProperty() ast.ObjectProperty {
	if p.at(lexer.TDotDotDot) {
		p.lex.Next()
		return ast.ObjectProperty{Kind: ast.PropertySpread, Value: p.parseAssign()}
	}

	isAsync, isGenerator := false, false
	if p.isIdentText("async") {
		snap := p.snapshot()
		p.lex.Next()
		if !p.canEndPropertyKey() {
			isAsync = true
		} else {
			p.restore(snap)
		}
	}
	if p.at(lexer.TAsterisk) {
		isGenerator = true
		p.lex.Next()
	}

	kind := ast.PropertyNormal
	if (p.isIdentText("get") || p.isIdentText("set")) && !isAsync && !isGenerator {
		snap := p.snapshot()
		isGet := p.isIdentText("get")
		p.lex.Next()
		if !p.canEndPropertyKey() {
			if isGet {
				kind = ast.PropertyGet
			} else {
				kind = ast.PropertySet
			}
		} else {
			p.restore(snap)
		}
	}

	key, computed := p.parsePropertyKey()

	if p.at(lexer.TOpenParen) || kind == ast.PropertyGet || kind == ast.PropertySet {
		fn := p.parseMethodTail(isAsync, isGenerator)
		if kind == ast.PropertyNormal {
			kind = ast.PropertyMethod
		}
		return ast.ObjectProperty{Kind: kind, Key: key, Computed: computed, Value: &ast.EFunction{Fn: fn}}
	}

	if p.at(lexer.TColon) {
		p.lex.Next()
		return ast.ObjectProperty{Kind: ast.PropertyNormal, Key: key, Computed: computed, Value: p.parseAssign()}
	}

	// Shorthand property, optionally with a destructuring default
	// ("{ x = 1 } = obj"): represent the default as an EAssign so both the
	// expression-evaluation path and the pattern-conversion path (used by
	// destructuring assignment) can read it uniformly. The identifier doubles
	// as the value, so it resolves against the scope chain like any other
	// reference (property keys themselves never do).
	if id, ok := key.(*ast.EIdentifier); ok {
		if scope, idx, found := p.scope.Lookup(id.Name); found {
			id.Ref = ast.Ref{ScopeID: scope.ID, SymbolIndex: idx, Valid: true}
		}
		var val ast.Expr = id
		if p.at(lexer.TEquals) {
			p.lex.Next()
			def := p.parseAssign()
			val = &ast.EAssign{Op: ast.AssignEq, Target: id, Value: def}
		}
		return ast.ObjectProperty{Kind: ast.PropertyNormal, Key: key, Value: val, Shorthand: true}
	}

	p.fail("invalid property")
	return ast.ObjectProperty{}
}

func (p *Parser) canEndPropertyKey() bool {
	switch p.lex.Token.Kind {
	case lexer.TColon, lexer.TOpenParen, lexer.TComma, lexer.TCloseBrace, lexer.TEquals:
		return true
	}
	return false
}

func (p *Parser) parsePropertyKey() (key ast.Expr, computed bool) {
	switch p.lex.Token.Kind {
	case lexer.TOpenBracket:
		p.lex.Next()
		key = p.parseAssign()
		p.expect(lexer.TCloseBracket, "]")
		return key, true
	case lexer.TStringLiteral:
		key = &ast.EString{Value: p.lex.Token.StringValue}
		p.lex.Next()
		return key, false
	case lexer.TNumericLiteral:
		key = &ast.ENumber{Value: p.lex.Token.Number}
		p.lex.Next()
		return key, false
	case lexer.TPrivateIdentifier:
		name := p.interner.Intern(p.lex.Token.Text)
		p.lex.Next()
		return &ast.EPrivateIdentifier{Name: name}, false
	default:
		name := p.interner.Intern(p.lex.Token.Text)
		p.lex.Next()
		return &ast.EIdentifier{Name: name}, false
	}
}
