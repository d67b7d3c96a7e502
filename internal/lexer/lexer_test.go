package lexer

import (
	"testing"

	"github.com/BasixKOR/boa/internal/test"
)

func tokens(src string) []T {
	l := NewLexer(src)
	var out []T
	for l.Token.Kind != TEndOfFile {
		out = append(out, l.Token.Kind)
		l.Next()
	}
	return out
}

func TestPunctuators(t *testing.T) {
	test.AssertEqual(t, tokens("a??=b"), []T{TIdentifier, TQuestionQuestionEquals, TIdentifier})
	test.AssertEqual(t, tokens("a?.b"), []T{TIdentifier, TQuestionDot, TIdentifier})
	test.AssertEqual(t, tokens("a>>>=b"), []T{TIdentifier, TGreaterThanGreaterThanGreaterThanEquals, TIdentifier})
	test.AssertEqual(t, tokens("a**b"), []T{TIdentifier, TAsteriskAsterisk, TIdentifier})
}

func TestKeywords(t *testing.T) {
	test.AssertEqual(t, tokens("let x = true"), []T{TLet, TIdentifier, TEquals, TTrue})
}

func TestNumbers(t *testing.T) {
	l := NewLexer("0x1F")
	test.AssertEqual(t, l.Token.Kind, TNumericLiteral)
	test.AssertEqual(t, l.Token.Number, float64(31))

	l = NewLexer("123n")
	test.AssertEqual(t, l.Token.Kind, TBigIntLiteral)
	test.AssertEqual(t, l.Token.BigIntText, "123")

	l = NewLexer("1_000.5e1")
	test.AssertEqual(t, l.Token.Kind, TNumericLiteral)
	test.AssertEqual(t, l.Token.Number, float64(10005))
}

func TestString(t *testing.T) {
	l := NewLexer(`"a\nbc"`)
	test.AssertEqual(t, l.Token.Kind, TStringLiteral)
	test.AssertEqual(t, string(utf16ToRunes(l.Token.StringValue)), "a\nbc")
}

func TestTemplateNoSubstitution(t *testing.T) {
	l := NewLexer("`hi`")
	test.AssertEqual(t, l.Token.Kind, TNoSubstitutionTemplateLiteral)
}

func TestCommentsAndNewlines(t *testing.T) {
	l := NewLexer("a /* c */\n// line\nb")
	test.AssertEqual(t, l.Token.Kind, TIdentifier)
	l.Next()
	test.AssertEqual(t, l.Token.Kind, TIdentifier)
	test.AssertEqual(t, l.Token.HasNewlineBefore, true)
}

func TestPrivateIdentifier(t *testing.T) {
	test.AssertEqual(t, tokens("#x in y"), []T{TPrivateIdentifier, TIn, TIdentifier})
}

func utf16ToRunes(units []uint16) []rune {
	var out []rune
	for _, u := range units {
		out = append(out, rune(u))
	}
	return out
}
