package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var toks []Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := lexAll(t, "var x = function sleep_ms millis")
	types := []TokenType{KW_VAR, IDENT, ASSIGN, KW_FUNCTION, KW_SLEEP_MS, KW_MILLIS, EOF}
	require.Len(t, toks, len(types))
	for i, ty := range types {
		assert.Equal(t, ty, toks[i].Type)
	}
}

func TestNumberLiterals(t *testing.T) {
	toks := lexAll(t, "42 3.14 7.")
	assert.Equal(t, INT, toks[0].Type)
	assert.Equal(t, "42", toks[0].Literal)
	assert.Equal(t, FLOAT, toks[1].Type)
	assert.Equal(t, "3.14", toks[1].Literal)
	// "7." has no digit after the dot, so the dot is not consumed as a
	// fractional part: this lexes as INT "7" followed by DOT.
	assert.Equal(t, INT, toks[2].Type)
	assert.Equal(t, "7", toks[2].Literal)
	assert.Equal(t, DOT, toks[3].Type)
}

func TestStringLiteralStoresEscapesVerbatim(t *testing.T) {
	toks := lexAll(t, `"hi\n\"there\""`)
	require.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, `hi\n\"there\"`, toks[0].Literal)
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := New(`"unterminated`)
	_, err := l.Next()
	require.Error(t, err)
	var lerr *LexError
	require.ErrorAs(t, err, &lerr)
}

func TestCompoundOperators(t *testing.T) {
	toks := lexAll(t, "+= -= *= /= %= ++ -- == != <= >= && ||")
	types := []TokenType{PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN, PERCENT_ASSIGN,
		INCREMENT, DECREMENT, EQ, NEQ, LTE, GTE, AND, OR, EOF}
	require.Len(t, toks, len(types))
	for i, ty := range types {
		assert.Equal(t, ty, toks[i].Type)
	}
}

func TestCommentsAreDiscarded(t *testing.T) {
	toks := lexAll(t, "1 // trailing comment\n/* block\ncomment */ 2")
	require.Len(t, toks, 3)
	assert.Equal(t, "1", toks[0].Literal)
	assert.Equal(t, "2", toks[1].Literal)
}

func TestLineColumnTrackingAcrossNewlines(t *testing.T) {
	l := New("a\nb")
	first, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position.Line)
	second, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position.Line)
}

func TestUnknownCharacterReportsPosition(t *testing.T) {
	l := New("x = @")
	_, _ = l.Next()
	_, _ = l.Next()
	_, _ = l.Next()
	_, err := l.Next()
	require.Error(t, err)
	var lerr *LexError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 1, lerr.Position.Line)
}
