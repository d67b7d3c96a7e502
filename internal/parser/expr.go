package parser

import (
	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/lexer"
)

// Precedence levels, lowest to highest, following esbuild's js_parser.L
// ladder in spirit (a flat integer ladder a Pratt loop compares against)
// trimmed to the operators this grammar has.
type prec int

const (
	precLowest prec = iota
	precComma
	precAssign
	precConditional
	precNullishCoalescing
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precExponent
	precPrefix
	precPostfix
	precCall
)

var binOpPrec = map[lexer.T]prec{
	lexer.TBarBar:                         precLogicalOr,
	lexer.TAmpersandAmpersand:             precLogicalAnd,
	lexer.TQuestionQuestion:               precNullishCoalescing,
	lexer.TBar:                            precBitOr,
	lexer.TCaret:                          precBitXor,
	lexer.TAmpersand:                      precBitAnd,
	lexer.TEqualsEquals:                   precEquality,
	lexer.TExclamationEquals:              precEquality,
	lexer.TEqualsEqualsEquals:             precEquality,
	lexer.TExclamationEqualsEquals:        precEquality,
	lexer.TLessThan:                       precRelational,
	lexer.TLessThanEquals:                 precRelational,
	lexer.TGreaterThan:                    precRelational,
	lexer.TGreaterThanEquals:              precRelational,
	lexer.TIn:                             precRelational,
	lexer.TInstanceof:                     precRelational,
	lexer.TLessThanLessThan:               precShift,
	lexer.TGreaterThanGreaterThan:         precShift,
	lexer.TGreaterThanGreaterThanGreaterThan: precShift,
	lexer.TPlus:                           precAdditive,
	lexer.TMinus:                          precAdditive,
	lexer.TAsterisk:                       precMultiplicative,
	lexer.TSlash:                          precMultiplicative,
	lexer.TPercent:                        precMultiplicative,
	lexer.TAsteriskAsterisk:               precExponent,
}

var binOpKind = map[lexer.T]ast.BinOp{
	lexer.TBarBar: ast.BinLogicalOr, lexer.TAmpersandAmpersand: ast.BinLogicalAnd,
	lexer.TQuestionQuestion: ast.BinNullishCoalescing,
	lexer.TBar: ast.BinBitOr, lexer.TCaret: ast.BinBitXor, lexer.TAmpersand: ast.BinBitAnd,
	lexer.TEqualsEquals: ast.BinEq, lexer.TExclamationEquals: ast.BinNe,
	lexer.TEqualsEqualsEquals: ast.BinStrictEq, lexer.TExclamationEqualsEquals: ast.BinStrictNe,
	lexer.TLessThan: ast.BinLt, lexer.TLessThanEquals: ast.BinLe,
	lexer.TGreaterThan: ast.BinGt, lexer.TGreaterThanEquals: ast.BinGe,
	lexer.TIn: ast.BinIn, lexer.TInstanceof: ast.BinInstanceof,
	lexer.TLessThanLessThan: ast.BinShl, lexer.TGreaterThanGreaterThan: ast.BinShr,
	lexer.TGreaterThanGreaterThanGreaterThan: ast.BinUShr,
	lexer.TPlus: ast.BinAdd, lexer.TMinus: ast.BinSub,
	lexer.TAsterisk: ast.BinMul, lexer.TSlash: ast.BinDiv, lexer.TPercent: ast.BinMod,
	lexer.TAsteriskAsterisk: ast.BinPow,
}

var assignOpKind = map[lexer.T]ast.AssignOp{
	lexer.TEquals: ast.AssignEq,
	lexer.TPlusEquals: ast.AssignAdd, lexer.TMinusEquals: ast.AssignSub,
	lexer.TAsteriskEquals: ast.AssignMul, lexer.TSlashEquals: ast.AssignDiv, lexer.TPercentEquals: ast.AssignMod,
	lexer.TAsteriskAsteriskEquals: ast.AssignPow,
	lexer.TLessThanLessThanEquals: ast.AssignShl, lexer.TGreaterThanGreaterThanEquals: ast.AssignShr,
	lexer.TGreaterThanGreaterThanGreaterThanEquals: ast.AssignUShr,
	lexer.TAmpersandEquals: ast.AssignBitAnd, lexer.TBarEquals: ast.AssignBitOr, lexer.TCaretEquals: ast.AssignBitXor,
	lexer.TAmpersandAmpersandEquals: ast.AssignLogicalAnd, lexer.TBarBarEquals: ast.AssignLogicalOr,
	lexer.TQuestionQuestionEquals: ast.AssignNullishCoalescing,
}

// parseExpr parses a full (comma-containing) expression down to minPrec.
func (p *Parser) parseExpr(minPrec prec) ast.Expr {
	e := p.parseAssign()
	for minPrec <= precComma && p.at(lexer.TComma) {
		p.lex.Next()
		right := p.parseAssign()
		e = &ast.ESequence{Exprs: []ast.Expr{e, right}}
	}
	return e
}

func (p *Parser) parseAssign() ast.Expr {
	left := p.parseConditional()
	if op, ok := assignOpKind[p.lex.Token.Kind]; ok {
		p.lex.Next()
		right := p.parseAssign()
		return &ast.EAssign{Op: op, Target: left, Value: right}
	}
	return left
}

func (p *Parser) parseConditional() ast.Expr {
	test := p.parseBinary(precLowest + 1)
	if p.at(lexer.TQuestion) {
		p.lex.Next()
		yes := p.parseAssign()
		p.expect(lexer.TColon, ":")
		no := p.parseAssign()
		return &ast.EConditional{Test: test, Yes: yes, No: no}
	}
	return test
}

func (p *Parser) parseBinary(minPrec prec) ast.Expr {
	left := p.parseUnary()
	for {
		opPrec, ok := binOpPrec[p.lex.Token.Kind]
		if !ok || opPrec < minPrec {
			return left
		}
		op := p.lex.Token.Kind
		p.lex.Next()
		nextMin := opPrec + 1
		if op == lexer.TAsteriskAsterisk {
			nextMin = opPrec // right-associative
		}
		right := p.parseBinary(nextMin)
		left = &ast.EBinary{Op: binOpKind[op], Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.lex.Token.Kind {
	case lexer.TPlus:
		p.lex.Next()
		return &ast.EUnary{Op: ast.UnPos, Value: p.parseUnary()}
	case lexer.TMinus:
		p.lex.Next()
		return &ast.EUnary{Op: ast.UnNeg, Value: p.parseUnary()}
	case lexer.TExclamation:
		p.lex.Next()
		return &ast.EUnary{Op: ast.UnNot, Value: p.parseUnary()}
	case lexer.TTilde:
		p.lex.Next()
		return &ast.EUnary{Op: ast.UnBitNot, Value: p.parseUnary()}
	case lexer.TTypeof:
		p.lex.Next()
		return &ast.EUnary{Op: ast.UnTypeof, Value: p.parseUnary()}
	case lexer.TVoid:
		p.lex.Next()
		return &ast.EUnary{Op: ast.UnVoid, Value: p.parseUnary()}
	case lexer.TDelete:
		p.lex.Next()
		return &ast.EUnary{Op: ast.UnDelete, Value: p.parseUnary()}
	case lexer.TPlusPlus:
		p.lex.Next()
		return &ast.EUpdate{Value: p.parseUnary(), Op: ast.UpdateIncrement, Prefix: true}
	case lexer.TMinusMinus:
		p.lex.Next()
		return &ast.EUpdate{Value: p.parseUnary(), Op: ast.UpdateDecrement, Prefix: true}
	case lexer.TYield:
		return p.parseYield()
	case lexer.TIdentifier:
		if p.lex.Token.Text == "await" {
			snap := p.snapshot()
			p.lex.Next()
			if p.canStartExprAfterAwait() {
				return &ast.EAwait{Value: p.parseUnary()}
			}
			p.restore(snap)
		}
	}
	return p.parsePostfix()
}

func (p *Parser) canStartExprAfterAwait() bool {
	switch p.lex.Token.Kind {
	case lexer.TSemicolon, lexer.TCloseBrace, lexer.TCloseParen, lexer.TComma, lexer.TEndOfFile:
		return false
	}
	return true
}

func (p *Parser) parseYield() ast.Expr {
	p.lex.Next()
	delegate := false
	if p.at(lexer.TAsterisk) {
		delegate = true
		p.lex.Next()
	}
	var val ast.Expr
	if !p.lex.Token.HasNewlineBefore {
		switch p.lex.Token.Kind {
		case lexer.TSemicolon, lexer.TCloseBrace, lexer.TCloseParen, lexer.TCloseBracket, lexer.TComma, lexer.TColon, lexer.TEndOfFile:
		default:
			val = p.parseAssign()
		}
	}
	return &ast.EYield{Value: val, Delegate: delegate}
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parseCallChain(p.parsePrimary())
	if !p.lex.Token.HasNewlineBefore {
		switch p.lex.Token.Kind {
		case lexer.TPlusPlus:
			p.lex.Next()
			return &ast.EUpdate{Value: e, Op: ast.UpdateIncrement}
		case lexer.TMinusMinus:
			p.lex.Next()
			return &ast.EUpdate{Value: e, Op: ast.UpdateDecrement}
		}
	}
	return e
}

// parseCallChain handles member access (".", "[]", "?."), calls, tagged
// templates, and "new" following a primary expression -- esbuild's
// parseSuffix loop, trimmed to this grammar's operator set.
func (p *Parser) parseCallChain(e ast.Expr) ast.Expr {
	for {
		switch p.lex.Token.Kind {
		case lexer.TDot:
			p.lex.Next()
			if p.at(lexer.TPrivateIdentifier) {
				name := p.interner.Intern(p.lex.Token.Text)
				p.lex.Next()
				e = &ast.EDot{Target: e, Name: name, Private: true}
				continue
			}
			name := p.propertyNameAsIdent()
			e = &ast.EDot{Target: e, Name: name}
		case lexer.TQuestionDot:
			p.lex.Next()
			switch p.lex.Token.Kind {
			case lexer.TOpenParen:
				e = p.parseArgs(e, true)
			case lexer.TOpenBracket:
				p.lex.Next()
				idx := p.parseExpr(precLowest)
				p.expect(lexer.TCloseBracket, "]")
				e = &ast.EIndex{Target: e, Index: idx, OptionalChain: true}
			default:
				name := p.propertyNameAsIdent()
				e = &ast.EDot{Target: e, Name: name, OptionalChain: true}
			}
		case lexer.TOpenBracket:
			p.lex.Next()
			idx := p.parseExpr(precLowest)
			p.expect(lexer.TCloseBracket, "]")
			e = &ast.EIndex{Target: e, Index: idx}
		case lexer.TOpenParen:
			e = p.parseArgs(e, false)
		case lexer.TNoSubstitutionTemplateLiteral, lexer.TTemplateHead:
			e = p.parseTemplate(e)
		default:
			return e
		}
	}
}

func (p *Parser) propertyNameAsIdent() (id intern.ID) {
	id = p.interner.Intern(p.lex.Token.Text)
	p.lex.Next()
	return
}

func (p *Parser) parseArgs(target ast.Expr, optional bool) ast.Expr {
	p.expect(lexer.TOpenParen, "(")
	var args []ast.Expr
	for !p.at(lexer.TCloseParen) {
		if p.at(lexer.TDotDotDot) {
			p.lex.Next()
			args = append(args, &ast.ESpread{Value: p.parseAssign()})
		} else {
			args = append(args, p.parseAssign())
		}
		if !p.at(lexer.TComma) {
			break
		}
		p.lex.Next()
	}
	p.expect(lexer.TCloseParen, ")")
	return &ast.ECall{Target: target, Args: args, OptionalChain: optional}
}
