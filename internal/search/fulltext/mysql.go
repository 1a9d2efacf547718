package fulltext

import (
	"strings"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/search"
)

// mysqlDialect uses FULLTEXT indexes on search_documents in boolean mode.
type mysqlDialect struct{}

// fulltext indexes by name, one per column list a term can use.
var mysqlIndexes = map[string][]string{ //nolint:gochecknoglobals
	"ft_search_documents_title":   {colTitle},
	"ft_search_documents_authors": {colAuthors},
	"ft_search_documents_body":    {colBody},
	"ft_search_documents_all":     allColumns,
}

func (mysqlDialect) setup(db *gorm.DB) error {
	for name, cols := range mysqlIndexes {
		if db.Migrator().HasIndex(&models.SearchDocument{}, name) {
			continue
		}

		err := db.Exec("CREATE FULLTEXT INDEX " + name + " ON search_documents (" + strings.Join(cols, ", ") + ")").Error
		if err != nil {
			return err
		}
	}

	return nil
}

func (mysqlDialect) index(*gorm.DB, *models.SearchDocument) error { return nil }

func (mysqlDialect) remove(*gorm.DB, uint64) error { return nil }

func (mysqlDialect) clear(*gorm.DB) error { return nil }

func (mysqlDialect) query(tx *gorm.DB, terms []term, q search.Query) ([]match, error) {
	var out []match

	tx = combine(tx.Table("search_documents AS d"), terms, func(t term) (string, string, any) {
		m := "MATCH(" + qualify(t.Columns) + ") AGAINST (? IN BOOLEAN MODE)"

		return m, m, booleanTerm(t)
	})

	err := filter(tx, q).Scan(&out).Error

	return out, err
}

// booleanTerm renders a term for boolean mode. Phrases cannot carry a wildcard, so a
// prefixed phrase requires each keyword instead.
func booleanTerm(t term) string {
	switch {
	case len(t.Keywords) == 1 && t.Prefix:
		return t.Keywords[0] + "*"
	case len(t.Keywords) == 1:
		return t.Keywords[0]
	case t.Prefix:
		parts := make([]string, len(t.Keywords))
		for i, kw := range t.Keywords {
			parts[i] = "+" + kw
		}

		parts[len(parts)-1] += "*"

		return strings.Join(parts, " ")
	default:
		return `"` + strings.Join(t.Keywords, " ") + `"`
	}
}

func qualify(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = "d." + c
	}

	return strings.Join(out, ", ")
}
