package fulltext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkp/pkplib/internal/search"
)

func TestFtsExpression(t *testing.T) {
	testCases := []struct {
		name  string
		terms []term
		want  string
	}{
		{
			name:  "single",
			terms: []term{{Occur: search.Must, Keywords: []string{"climate"}, Columns: allColumns}},
			want:  `"climate"`,
		},
		{
			name: "must should not",
			terms: []term{
				{Occur: search.Must, Keywords: []string{"climate"}, Columns: allColumns},
				{Occur: search.Should, Keywords: []string{"sea"}, Columns: allColumns},
				{Occur: search.Should, Keywords: []string{"ocean"}, Prefix: true, Columns: allColumns},
				{Occur: search.MustNot, Keywords: []string{"policy"}, Columns: allColumns},
			},
			want: `("climate" AND ("sea" OR "ocean"*)) NOT "policy"`,
		},
		{
			name:  "column filter",
			terms: []term{{Occur: search.Must, Keywords: []string{"alice", "chen"}, Phrase: true, Columns: []string{colAuthors}}},
			want:  `{authors} : "alice chen"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ftsExpression(tc.terms))
		})
	}
}

func TestBooleanTerm(t *testing.T) {
	assert.Equal(t, "climate", booleanTerm(term{Keywords: []string{"climate"}}))
	assert.Equal(t, "clim*", booleanTerm(term{Keywords: []string{"clim"}, Prefix: true}))
	assert.Equal(t, `"climate change"`, booleanTerm(term{Keywords: []string{"climate", "change"}, Phrase: true}))
	assert.Equal(t, "+climate +chan*", booleanTerm(term{Keywords: []string{"climate", "chan"}, Phrase: true, Prefix: true}))
}

func TestTsquery(t *testing.T) {
	assert.Equal(t, "climate <-> change", tsquery(term{Keywords: []string{"climate", "change"}}))
	assert.Equal(t, "clim:*", tsquery(term{Keywords: []string{"clim"}, Prefix: true}))
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{colTitle}, columns(search.FieldTitle))
	assert.Equal(t, []string{colAuthors}, columns(search.FieldAuthor))
	assert.Equal(t, []string{colBody}, columns(search.FieldAbstract))
	assert.Equal(t, []string{colBody}, columns(search.FieldKeyword|search.FieldSubject))
	assert.Equal(t, allColumns, columns(search.FieldAll))
}
