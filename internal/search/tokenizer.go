package search

import (
	"bufio"
	_ "embed"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keyword length limits.
const (
	DefaultMinWordLength = 3
	DefaultMaxWordLength = 60
)

//go:embed stopwords.txt
var stopwordList string

// Tokenizer splits text into index keywords: accents are stripped, text is lower cased
// for its locale, split on anything but letters and digits, stopwords and short words
// are dropped and long words are truncated.
type Tokenizer struct {
	MinLength int
	MaxLength int
	Stopwords map[string]struct{}
}

// NewTokenizer returns a tokenizer with the shipped stopword list. Zero lengths use
// the defaults.
func NewTokenizer(minLength, maxLength int) *Tokenizer {
	if minLength <= 0 {
		minLength = DefaultMinWordLength
	}

	if maxLength <= 0 {
		maxLength = DefaultMaxWordLength
	}

	return &Tokenizer{MinLength: minLength, MaxLength: maxLength, Stopwords: loadStopwords()}
}

func loadStopwords() map[string]struct{} {
	words := map[string]struct{}{}

	sc := bufio.NewScanner(strings.NewReader(stopwordList))
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}

		words[w] = struct{}{}
	}

	return words
}

// Normalize strips marks and lower cases s for locale.
func (t *Tokenizer) Normalize(s, locale string) string {
	tr := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	out, _, err := transform.String(tr, s)
	if err != nil {
		out = s
	}

	return cases.Lower(localeTag(locale)).String(out)
}

// Tokenize returns the keywords of s in order.
func (t *Tokenizer) Tokenize(s, locale string) []string {
	words := strings.FieldsFunc(t.Normalize(s, locale), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := words[:0]

	for _, w := range words {
		if len([]rune(w)) < t.MinLength {
			continue
		}

		if _, stop := t.Stopwords[w]; stop {
			continue
		}

		if r := []rune(w); len(r) > t.MaxLength {
			w = string(r[:t.MaxLength])
		}

		out = append(out, w)
	}

	return out
}

// TermKeywords tokenizes a query term. The trailing wildcard of a prefix term is
// handled by the caller, so short prefixes are kept.
func (t *Tokenizer) TermKeywords(term Term, locale string) []string {
	if !term.Prefix {
		return t.Tokenize(term.Text, locale)
	}

	c := *t
	c.MinLength = 1

	return c.Tokenize(term.Text, locale)
}

func localeTag(locale string) language.Tag {
	if locale == "" {
		return language.Und
	}

	locale, _, _ = strings.Cut(locale, "@")

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und
	}

	return tag
}
