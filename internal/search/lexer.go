package search

import (
	"iter"
	"unicode"
)

// Lexer splits text into normalized tokens, one call to Next at a time.
//
// Digit runs are emitted verbatim. Runs that start with an alphabetic rune
// continue through alphabetic runes and digits and are upper-cased. Any
// other rune is a token of its own. Whitespace separates tokens and is never emitted.
type Lexer struct {
	content []rune
}

func NewLexer(text string) *Lexer {
	return &Lexer{content: []rune(text)}
}

func (l *Lexer) trimLeft() {
	for len(l.content) > 0 && unicode.IsSpace(l.content[0]) {
		l.content = l.content[1:]
	}
}

func (l *Lexer) chop(n int) []rune {
	token := l.content[:n]
	l.content = l.content[n:]
	return token
}

func (l *Lexer) chopWhile(pred func(rune) bool) []rune {
	n := 0
	for n < len(l.content) && pred(l.content[n]) {
		n++
	}
	return l.chop(n)
}

// Next returns the next token, or false once the input is exhausted.
func (l *Lexer) Next() (string, bool) {
	l.trimLeft()
	if len(l.content) == 0 {
		return "", false
	}

	first := l.content[0]
	switch {
	case unicode.IsDigit(first):
		return string(l.chopWhile(unicode.IsDigit)), true
	case isAlphabetic(first):
		run := l.chopWhile(isAlphanumeric)
		upper := make([]rune, len(run))
		for i, r := range run {
			upper[i] = unicode.ToUpper(r)
		}
		return string(upper), true
	default:
		return string(l.chop(1)), true
	}
}

// All drains the lexer as a sequence.
func (l *Lexer) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			token, ok := l.Next()
			if !ok || !yield(token) {
				return
			}
		}
	}
}

// isAlphabetic reports the Unicode Alphabetic property: letters, letter
// numbers and the combining vowel signs of scripts such as Devanagari.
func isAlphabetic(r rune) bool {
	return unicode.IsLetter(r) || unicode.In(r, unicode.Nl, unicode.Other_Alphabetic)
}

func isAlphanumeric(r rune) bool {
	return isAlphabetic(r) || unicode.IsDigit(r)
}
