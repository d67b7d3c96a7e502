package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/lexer"
)

// ParseJSON parses a JSON text (RFC 8259) into the same ast.Expr node
// shapes the JS parser produces for object/array/primitive literals --
// grounded on esbuild's internal/json_parser, which likewise reuses
// js_ast.Expr as JSON's result type rather than a separate JSON-only tree.
// internal/realm's JSON.parse builtin walks the returned Expr to build
// live heap objects; this package never touches the heap itself.
func ParseJSON(source string) (ast.Expr, error) {
	p := &Parser{lex: lexer.NewLexer(source)}
	var result ast.Expr
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				if pe, ok := r.(*Error); ok {
					err = pe
					return
				}
				panic(r)
			}
		}()
		result = p.parseJSONValue()
		if !p.at(lexer.TEndOfFile) {
			p.fail("unexpected trailing content after JSON value")
		}
		return nil
	}()
	return result, err
}

func (p *Parser) parseJSONValue() ast.Expr {
	switch p.lex.Token.Kind {
	case lexer.TOpenBrace:
		return p.parseJSONObject()
	case lexer.TOpenBracket:
		return p.parseJSONArray()
	case lexer.TStringLiteral:
		v := p.lex.Token.StringValue
		p.lex.Next()
		return &ast.EString{Value: v}
	case lexer.TNumericLiteral:
		n := p.lex.Token.Number
		p.lex.Next()
		return &ast.ENumber{Value: n}
	case lexer.TMinus:
		p.lex.Next()
		if p.lex.Token.Kind != lexer.TNumericLiteral {
			p.fail("expected number after -")
		}
		n := p.lex.Token.Number
		p.lex.Next()
		return &ast.ENumber{Value: -n}
	case lexer.TTrue:
		p.lex.Next()
		return &ast.EBoolean{Value: true}
	case lexer.TFalse:
		p.lex.Next()
		return &ast.EBoolean{Value: false}
	case lexer.TNull:
		p.lex.Next()
		return &ast.ENull{}
	default:
		p.fail("unexpected token in JSON")
		return nil
	}
}

func (p *Parser) parseJSONObject() ast.Expr {
	p.expect(lexer.TOpenBrace, "{")
	var props []ast.ObjectProperty
	for !p.at(lexer.TCloseBrace) {
		if p.lex.Token.Kind != lexer.TStringLiteral {
			p.fail("expected string key in JSON object")
		}
		key := &ast.EString{Value: p.lex.Token.StringValue}
		p.lex.Next()
		p.expect(lexer.TColon, ":")
		val := p.parseJSONValue()
		props = append(props, ast.ObjectProperty{Kind: ast.PropertyNormal, Key: key, Value: val})
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseBrace, "}")
	return &ast.EObject{Properties: props}
}

func (p *Parser) parseJSONArray() ast.Expr {
	p.expect(lexer.TOpenBracket, "[")
	var items []ast.Expr
	for !p.at(lexer.TCloseBracket) {
		items = append(items, p.parseJSONValue())
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseBracket, "]")
	return &ast.EArray{Items: items}
}
