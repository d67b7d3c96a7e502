// Package parser turns a token stream into an ast.SProgram (spec.md §2/
// §4.2's Parser). Grounded on esbuild's internal/js_parser: a single
// recursive-descent parser that binds identifiers to ast.Scope/Symbol as it
// goes rather than in a separate pass, and resolves the "(" ambiguity
// between a parenthesized expression and an arrow function's parameter
// list by speculatively parsing and backtracking (esbuild's "cover grammar"
// trick, simplified here since this Lexer is a cheap-to-copy value type).
// Trimmed relative to the teacher: no JSX, no TypeScript type syntax, no
// bundler import/export linking -- only the core ECMAScript grammar and
// plain `import`/`export` declarations this repository's module loader
// needs.
package parser

import (
	"fmt"

	"github.com/BasixKOR/boa/internal/ast"
	"github.com/BasixKOR/boa/internal/intern"
	"github.com/BasixKOR/boa/internal/lexer"
)

// Error is a parse failure with a source location, the shape
// internal/errors.EngineError.Kind == KindSyntaxError wraps at the
// Context.Eval boundary.
type Error struct {
	Loc ast.Loc
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Loc.Start, e.Msg) }

type Parser struct {
	lex      *lexer.Lexer
	interner *intern.Table
	source   string

	scope       *ast.Scope
	nextScopeID int32

	fnDepth    int
	genDepth   int
	asyncDepth int
	loopDepth  int
	switchDepth int
}

func New(source string, interner *intern.Table) *Parser {
	return &Parser{
		lex:      lexer.NewLexer(source),
		interner: interner,
		source:   source,
	}
}

// ParseProgram parses a full script or module; isModule selects
// always-strict module semantics vs. script semantics (spec.md §3/§6).
func ParseProgram(source string, interner *intern.Table, isModule bool) (*ast.SProgram, error) {
	return ParseProgramStrict(source, interner, isModule, false)
}

// ParseProgramStrict is ParseProgram with the realm's strict-mode default
// applied before the early-error pass runs, so a host-forced strict realm
// rejects sloppy-only syntax at parse time rather than compiling it
// inconsistently.
func ParseProgramStrict(source string, interner *intern.Table, isModule, strictDefault bool) (prog *ast.SProgram, err error) {
	p := New(source, interner)
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*Error); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	global := ast.NewScope(p.allocScopeID(), ast.ScopeGlobal, nil)
	p.scope = global

	stmts := p.parseStmtList(lexer.TEndOfFile)

	prog = &ast.SProgram{
		Body:     stmts,
		IsModule: isModule,
		Scope:    global,
		Strict:   isModule || strictDefault || p.hasUseStrictDirective(stmts),
	}
	p.checkEarlyErrors(prog)
	return prog, nil
}

type Stmt = ast.Stmt

func (p *Parser) allocScopeID() int32 {
	id := p.nextScopeID
	p.nextScopeID++
	return id
}

func (p *Parser) loc() ast.Loc { return ast.Loc{Start: p.lex.Token.Start} }

func (p *Parser) fail(format string, args ...any) {
	panic(&Error{Loc: p.loc(), Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) expect(kind lexer.T, what string) {
	if p.lex.Token.Kind != kind {
		p.fail("expected %s", what)
	}
	p.lex.Next()
}

func (p *Parser) at(kind lexer.T) bool { return p.lex.Token.Kind == kind }

func (p *Parser) name() intern.ID {
	if p.lex.Token.Kind != lexer.TIdentifier {
		p.fail("expected identifier")
	}
	id := p.interner.Intern(p.lex.Token.Text)
	p.lex.Next()
	return id
}

// isIdentText reports whether the current token is an identifier whose
// text is exactly s -- used for contextual keywords ("async", "of", "get",
// "set", "static") that scan as plain identifiers.
func (p *Parser) isIdentText(s string) bool {
	return p.lex.Token.Kind == lexer.TIdentifier && p.lex.Token.Text == s
}

// semicolon implements spec.md's automatic-semicolon-insertion rule: an
// explicit ";" is consumed, otherwise a newline, "}", or EOF silently ends
// the statement (esbuild's js_parser.lexer.ExpectOrInsertSemicolon).
func (p *Parser) semicolon() {
	if p.at(lexer.TSemicolon) {
		p.lex.Next()
		return
	}
	if p.at(lexer.TCloseBrace) || p.at(lexer.TEndOfFile) || p.lex.Token.HasNewlineBefore {
		return
	}
	p.fail("expected ;")
}

func (p *Parser) hasUseStrictDirective(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		if expr, ok := s.(*ast.SExpr); ok {
			if str, ok := expr.Value.(*ast.EString); ok {
				if string(runes16(str.Value)) == "use strict" {
					return true
				}
				continue
			}
		}
		break
	}
	return false
}

func runes16(units []uint16) []rune {
	out := make([]rune, len(units))
	for i, u := range units {
		out[i] = rune(u)
	}
	return out
}

// snapshot/restore implement the backtracking the parser needs to
// disambiguate "(" as either a parenthesized expression or an arrow
// function's parameter list: Lexer is a plain value with no pointers of
// its own (token text/number fields are copied, not aliased), so copying
// it is a full, cheap checkpoint.
type snapshot struct {
	lex lexer.Lexer
}

func (p *Parser) snapshot() snapshot { return snapshot{lex: *p.lex} }
func (p *Parser) restore(s snapshot) { *p.lex = s.lex }

func (p *Parser) pushScope(kind ast.ScopeKind) *ast.Scope {
	s := ast.NewScope(p.allocScopeID(), kind, p.scope)
	p.scope = s
	return s
}

func (p *Parser) popScope() { p.scope = p.scope.Parent }
