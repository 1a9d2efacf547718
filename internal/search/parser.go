package search

import (
	"strings"
	"unicode"
)

// Occur says how a term takes part in matching.
type Occur int

// Occurrences. A document must match every Must term, no MustNot term and, when
// Should terms exist, at least one of them.
const (
	Must Occur = iota
	Should
	MustNot
)

// Term is one word or phrase of a query. A trailing * makes a word a prefix.
type Term struct {
	Text   string
	Phrase bool
	Prefix bool
	Occur  Occur
}

// Parsed is a flattened query.
type Parsed struct {
	Terms []Term
}

// ByOccur returns the terms with occurrence o.
func (p Parsed) ByOccur(o Occur) []Term {
	var out []Term

	for _, t := range p.Terms {
		if t.Occur == o {
			out = append(out, t)
		}
	}

	return out
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPhrase
	tokAnd
	tokOr
	tokNot
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

// ParseQuery parses search text. Words and "quoted phrases" are required by default;
// a leading - or NOT excludes them, OR makes its neighbours alternatives and
// parentheses group terms under one operator.
func ParseQuery(s string) Parsed {
	p := &parser{toks: lex(s)}

	return Parsed{Terms: p.sequence(false)}
}

type parser struct {
	toks []token
	pos  int
}

// unit is a term or a parenthesised group joined to its predecessor by AND or OR.
type unit struct {
	terms  []Term
	negate bool
	or     bool
}

// sequence parses units up to the end of input or, when nested, the closing
// parenthesis, and flattens them into terms.
func (p *parser) sequence(nested bool) []Term {
	var (
		units  []unit
		negate bool
		or     bool
	)

loop:
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		p.pos++

		switch tok.kind {
		case tokClose:
			if nested {
				break loop
			}
		case tokAnd:
		case tokOr:
			or = len(units) > 0
		case tokNot:
			negate = true
		case tokOpen:
			if sub := p.sequence(true); len(sub) > 0 {
				units = append(units, unit{terms: sub, negate: negate, or: or})
			}

			negate, or = false, false
		case tokWord, tokPhrase:
			if t, ok := newTerm(tok); ok {
				units = append(units, unit{terms: []Term{t}, negate: negate, or: or})
			}

			negate, or = false, false
		}
	}

	var out []Term

	for i, u := range units {
		outer := Must

		switch {
		case u.negate:
			outer = MustNot
		case u.or || (i+1 < len(units) && units[i+1].or):
			outer = Should
		}

		for _, t := range u.terms {
			t.Occur = combine(outer, t.Occur)
			out = append(out, t)
		}
	}

	return out
}

func combine(outer, inner Occur) Occur {
	switch {
	case outer == MustNot || inner == MustNot:
		return MustNot
	case outer == Should:
		return Should
	default:
		return inner
	}
}

func newTerm(tok token) (Term, bool) {
	t := Term{Text: tok.text, Phrase: tok.kind == tokPhrase}

	if !t.Phrase && strings.HasSuffix(t.Text, "*") {
		t.Text = strings.TrimRight(t.Text, "*")
		t.Prefix = true
	}

	return t, t.Text != ""
}

func lex(s string) []token {
	var toks []token

	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]

		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokOpen})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokClose})
			i++
		case r == '"':
			end := i + 1
			for end < len(rs) && rs[end] != '"' {
				end++
			}

			if phrase := strings.TrimSpace(string(rs[i+1 : end])); phrase != "" {
				toks = append(toks, token{kind: tokPhrase, text: phrase})
			}

			i = end + 1
		case r == '-' || r == '+':
			if r == '-' {
				toks = append(toks, token{kind: tokNot})
			}

			i++
		default:
			end := i
			for end < len(rs) && !unicode.IsSpace(rs[end]) && !strings.ContainsRune(`()"`, rs[end]) {
				end++
			}

			word := string(rs[i:end])
			i = end

			switch word {
			case "AND", "&&":
				toks = append(toks, token{kind: tokAnd})
			case "OR", "||":
				toks = append(toks, token{kind: tokOr})
			case "NOT":
				toks = append(toks, token{kind: tokNot})
			default:
				toks = append(toks, token{kind: tokWord, text: word})
			}
		}
	}

	return toks
}
