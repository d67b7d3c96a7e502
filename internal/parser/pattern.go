package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/lexer"
)

// parseBindingTarget parses a binding target in a declaration/parameter
// position: a plain identifier or an array/object destructuring pattern
// (spec.md §4.2's destructuring grammar).
func (p *Parser) parseBindingTarget() ast.Binding {
	loc := p.loc()
	switch p.lex.Token.Kind {
	case lexer.TOpenBracket:
		return p.parseArrayBindingPattern(loc)
	case lexer.TOpenBrace:
		return p.parseObjectBindingPattern(loc)
	default:
		name := p.name()
		return ast.Binding{Kind: ast.BindingIdentifier, Loc: loc, Name: name}
	}
}

func (p *Parser) parseArrayBindingPattern(loc ast.Loc) ast.Binding {
	p.expect(lexer.TOpenBracket, "[")
	b := ast.Binding{Kind: ast.BindingArray, Loc: loc}
	for !p.at(lexer.TCloseBracket) {
		if p.at(lexer.TComma) {
			b.Items = append(b.Items, ast.BindingItem{IsHole: true})
			p.lex.Next()
			continue
		}
		if p.at(lexer.TDotDotDot) {
			p.lex.Next()
			rest := p.parseBindingTarget()
			b.Rest = &rest
			break
		}
		item := p.parseBindingElement()
		b.Items = append(b.Items, item)
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseBracket, "]")
	return b
}

func (p *Parser) parseBindingElement() ast.BindingItem {
	target := p.parseBindingTarget()
	var def ast.Expr
	if p.at(lexer.TEquals) {
		p.lex.Next()
		def = p.parseAssign()
	}
	return ast.BindingItem{Value: target, Default: def}
}

func (p *Parser) parseObjectBindingPattern(loc ast.Loc) ast.Binding {
	p.expect(lexer.TOpenBrace, "{")
	b := ast.Binding{Kind: ast.BindingObject, Loc: loc}
	for !p.at(lexer.TCloseBrace) {
		if p.at(lexer.TDotDotDot) {
			p.lex.Next()
			rest := p.parseBindingTarget()
			b.Rest = &rest
			break
		}
		var item ast.BindingItem
		computed := false
		var key ast.Expr
		if p.at(lexer.TOpenBracket) {
			p.lex.Next()
			key = p.parseAssign()
			p.expect(lexer.TCloseBracket, "]")
			computed = true
		} else if p.at(lexer.TStringLiteral) {
			key = &ast.EString{Value: p.lex.Token.StringValue}
			p.lex.Next()
		} else if p.at(lexer.TNumericLiteral) {
			key = &ast.ENumber{Value: p.lex.Token.Number}
			p.lex.Next()
		} else {
			name := p.name()
			key = &ast.EIdentifier{Name: name}
		}
		item.Key = key
		item.Computed = computed
		if p.at(lexer.TColon) {
			p.lex.Next()
			item.Value = p.parseBindingTarget()
		} else if id, ok := key.(*ast.EIdentifier); ok {
			item.Value = ast.Binding{Kind: ast.BindingIdentifier, Name: id.Name}
		} else {
			p.fail("expected :")
		}
		if p.at(lexer.TEquals) {
			p.lex.Next()
			item.Default = p.parseAssign()
		}
		b.Items = append(b.Items, item)
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseBrace, "}")
	return b
}
