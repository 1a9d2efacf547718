package fulltext

import (
	"strings"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/search"
)

// postgresDialect matches text search vectors computed from search_documents.
// The text is normalized before storage, so the simple configuration is used.
type postgresDialect struct{}

func (postgresDialect) setup(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS search_documents_tsv ON search_documents USING GIN (to_tsvector('simple', " +
		vector("", allColumns) + "))").Error
}

func (postgresDialect) index(*gorm.DB, *models.SearchDocument) error { return nil }

func (postgresDialect) remove(*gorm.DB, uint64) error { return nil }

func (postgresDialect) clear(*gorm.DB) error { return nil }

func (postgresDialect) query(tx *gorm.DB, terms []term, q search.Query) ([]match, error) {
	var out []match

	tx = combine(tx.Table("search_documents AS d"), terms, func(t term) (string, string, any) {
		v := "to_tsvector('simple', " + vector("d.", t.Columns) + ")"

		return v + " @@ to_tsquery('simple', ?)", "ts_rank(" + v + ", to_tsquery('simple', ?))", tsquery(t)
	})

	err := filter(tx, q).Scan(&out).Error

	return out, err
}

// tsquery renders a term as a tsquery: keywords of a phrase follow each other and a
// prefix term matches by its last keyword's prefix.
func tsquery(t term) string {
	kws := append([]string(nil), t.Keywords...)
	if t.Prefix {
		kws[len(kws)-1] += ":*"
	}

	return strings.Join(kws, " <-> ")
}

func vector(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}

	return strings.Join(out, " || ' ' || ")
}
