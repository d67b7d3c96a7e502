package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/lexer"
)

func (p *Parser) parsePrimary() ast.Expr {
	switch p.lex.Token.Kind {
	case lexer.TNumericLiteral:
		n := p.lex.Token.Number
		legacy := p.lex.Token.LegacyOctal
		p.lex.Next()
		return &ast.ENumber{Value: n, LegacyOctal: legacy}

	case lexer.TBigIntLiteral:
		text := p.lex.Token.BigIntText
		p.lex.Next()
		return &ast.EBigInt{Text: text}

	case lexer.TStringLiteral:
		v := p.lex.Token.StringValue
		p.lex.Next()
		return &ast.EString{Value: v}

	case lexer.TNoSubstitutionTemplateLiteral:
		raw := p.lex.Token.Text
		cooked := p.lex.Token.StringValue
		p.lex.Next()
		return &ast.ETemplate{HeadRaw: raw, HeadCooked: cooked}

	case lexer.TTemplateHead:
		return p.parseTemplate(nil)

	case lexer.TTrue:
		p.lex.Next()
		return &ast.EBoolean{Value: true}
	case lexer.TFalse:
		p.lex.Next()
		return &ast.EBoolean{Value: false}
	case lexer.TNull:
		p.lex.Next()
		return &ast.ENull{}
	case lexer.TThis:
		p.lex.Next()
		return &ast.EThis{}
	case lexer.TSuper:
		p.lex.Next()
		return &ast.ESuper{}

	case lexer.TSlash, lexer.TSlashEquals:
		p.lex.NextRegex()
		pattern := p.lex.Token.Text
		flags := p.lex.Token.RegExpFlags
		p.lex.Next()
		return &ast.ERegExp{Pattern: pattern, Flags: flags}

	case lexer.TNew:
		p.lex.Next()
		if p.isIdentText("target") {
			p.lex.Next()
			return &ast.ENewTarget{}
		}
		callee := p.parseCallChainNoCall(p.parsePrimary())
		call := p.parseArgsOptional(callee)
		call.IsNew = true
		return call

	case lexer.TOpenParen:
		return p.parseParenOrArrow()

	case lexer.TOpenBracket:
		return p.parseArrayLiteral()

	case lexer.TOpenBrace:
		return p.parseObjectLiteral()

	case lexer.TFunction:
		fn := p.parseFunctionExpr(false)
		return &ast.EFunction{Fn: fn}

	case lexer.TClass:
		cls := p.parseClassExpr()
		return &ast.EClass{Class: cls}

	case lexer.TPrivateIdentifier:
		name := p.interner.Intern(p.lex.Token.Text)
		p.lex.Next()
		if p.isIdentText("in") || p.at(lexer.TIn) {
			p.lex.Next()
			obj := p.parseUnary()
			return &ast.EPrivateIn{Name: name, Object: obj}
		}
		return &ast.EPrivateIdentifier{Name: name}

	case lexer.TIdentifier, lexer.TLet, lexer.TYield:
		text := p.lex.Token.Text
		if text == "async" {
			snap := p.snapshot()
			p.lex.Next()
			if p.at(lexer.TFunction) && !p.lex.Token.HasNewlineBefore {
				fn := p.parseFunctionExpr(true)
				return &ast.EFunction{Fn: fn}
			}
			if arrow, ok := p.tryParseAsyncArrow(); ok {
				return arrow
			}
			p.restore(snap)
		}
		if arrow, ok := p.tryParseIdentifierArrow(); ok {
			return arrow
		}
		name := p.interner.Intern(text)
		p.lex.Next()
		id := &ast.EIdentifier{Name: name}
		if scope, idx, ok := p.scope.Lookup(name); ok {
			id.Ref = ast.Ref{ScopeID: scope.ID, SymbolIndex: idx, Valid: true}
		}
		return id

	default:
		p.fail("unexpected token")
		return nil
	}
}

// tryParseIdentifierArrow handles the "x => ..." single-parameter arrow
// shorthand, which needs one token of lookahead past the identifier.
func (p *Parser) tryParseIdentifierArrow() (ast.Expr, bool) {
	if p.lex.Token.Kind != lexer.TIdentifier {
		return nil, false
	}
	snap := p.snapshot()
	name := p.interner.Intern(p.lex.Token.Text)
	p.lex.Next()
	if !p.at(lexer.TEqualsGreaterThan) || p.lex.Token.HasNewlineBefore {
		p.restore(snap)
		return nil, false
	}
	p.lex.Next()
	fn := p.finishArrowBody([]ast.Param{{Binding: ast.Binding{Kind: ast.BindingIdentifier, Name: name}}}, false)
	return &ast.EArrow{Fn: fn}, true
}

func (p *Parser) tryParseAsyncArrow() (ast.Expr, bool) {
	if p.lex.Token.Kind == lexer.TIdentifier {
		snap := p.snapshot()
		name := p.interner.Intern(p.lex.Token.Text)
		p.lex.Next()
		if p.at(lexer.TEqualsGreaterThan) && !p.lex.Token.HasNewlineBefore {
			p.lex.Next()
			fn := p.finishArrowBody([]ast.Param{{Binding: ast.Binding{Kind: ast.BindingIdentifier, Name: name}}}, true)
			return &ast.EArrow{Fn: fn}, true
		}
		p.restore(snap)
	}
	if p.at(lexer.TOpenParen) {
		if params, ok := p.tryParseArrowParams(); ok {
			fn := p.finishArrowBody(params, true)
			return &ast.EArrow{Fn: fn}, true
		}
	}
	return nil, false
}

// parseParenOrArrow disambiguates "(" as a parenthesized expression versus
// an arrow function parameter list by speculatively parsing the parameter
// list and checking for a following "=>"; on failure it restores the
// snapshot taken before the attempt and parses a normal parenthesized
// expression instead.
func (p *Parser) parseParenOrArrow() ast.Expr {
	if params, ok := p.tryParseArrowParams(); ok {
		fn := p.finishArrowBody(params, false)
		return &ast.EArrow{Fn: fn}
	}
	p.expect(lexer.TOpenParen, "(")
	e := p.parseExpr(precLowest)
	p.expect(lexer.TCloseParen, ")")
	return e
}

func (p *Parser) tryParseArrowParams() (params []ast.Param, ok bool) {
	snap := p.snapshot()
	defer func() {
		if r := recover(); r != nil {
			p.restore(snap)
			ok = false
		}
	}()
	p.expect(lexer.TOpenParen, "(")
	for !p.at(lexer.TCloseParen) {
		if p.at(lexer.TDotDotDot) {
			p.lex.Next()
			b := p.parseBindingTarget()
			params = append(params, ast.Param{Binding: b, IsRest: true})
			break
		}
		b := p.parseBindingTarget()
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
	if !p.at(lexer.TEqualsGreaterThan) || p.lex.Token.HasNewlineBefore {
		p.restore(snap)
		return nil, false
	}
	p.lex.Next()
	return params, true
}

func (p *Parser) finishArrowBody(params []ast.Param, isAsync bool) *ast.Fn {
	scope := p.pushScope(ast.ScopeFunction)
	for i := range params {
		p.declareParamBinding(&params[i].Binding)
	}
	fn := &ast.Fn{Params: params, Scope: scope, Flags: ast.FnArrow}
	if isAsync {
		fn.Flags |= ast.FnAsync
	}
	if p.at(lexer.TOpenBrace) {
		p.expect(lexer.TOpenBrace, "{")
		fn.Body = p.parseStmtList(lexer.TCloseBrace)
		p.expect(lexer.TCloseBrace, "}")
	} else {
		fn.ArrowExpr = p.parseAssign()
	}
	p.popScope()
	return fn
}

func (p *Parser) parseCallChainNoCall(e ast.Expr) ast.Expr {
	for {
		switch p.lex.Token.Kind {
		case lexer.TDot:
			p.lex.Next()
			name := p.propertyNameAsIdent()
			e = &ast.EDot{Target: e, Name: name}
		case lexer.TOpenBracket:
			p.lex.Next()
			idx := p.parseExpr(precLowest)
			p.expect(lexer.TCloseBracket, "]")
			e = &ast.EIndex{Target: e, Index: idx}
		default:
			return e
		}
	}
}

func (p *Parser) parseArgsOptional(target ast.Expr) *ast.ECall {
	if !p.at(lexer.TOpenParen) {
		return &ast.ECall{Target: target}
	}
	call := p.parseArgs(target, false)
	return call.(*ast.ECall)
}

func (p *Parser) parseTemplate(tag ast.Expr) ast.Expr {
	headRaw := p.lex.Token.Text
	headCooked := p.lex.Token.StringValue
	if p.lex.Token.Kind == lexer.TNoSubstitutionTemplateLiteral {
		p.lex.Next()
		return &ast.ETemplate{Tag: tag, HeadRaw: headRaw, HeadCooked: headCooked}
	}
	var parts []ast.TemplatePart
	for {
		p.lex.Next()
		val := p.parseExpr(precLowest)
		if p.lex.Token.Kind != lexer.TCloseBrace {
			p.fail("expected } in template substitution")
		}
		p.lex.ScanTemplateContinuation()
		parts = append(parts, ast.TemplatePart{Value: val, Raw: p.lex.Token.Text, Cooked: p.lex.Token.StringValue})
		if p.lex.Token.Kind == lexer.TTemplateTail {
			p.lex.Next()
			break
		}
	}
	return &ast.ETemplate{Tag: tag, Parts: parts, HeadRaw: headRaw, HeadCooked: headCooked}
}
