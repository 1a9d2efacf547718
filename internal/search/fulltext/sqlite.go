package fulltext

import (
	"strings"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/search"
)

const ftsTable = "search_documents_fts"

// sqliteDialect keeps an FTS5 table beside search_documents.
type sqliteDialect struct{}

func (sqliteDialect) setup(db *gorm.DB) error {
	return db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS " + ftsTable +
		" USING fts5(submission_id UNINDEXED, title, authors, body)").Error
}

func (d sqliteDialect) index(tx *gorm.DB, doc *models.SearchDocument) error {
	if err := d.remove(tx, doc.SubmissionID); err != nil {
		return err
	}

	return tx.Exec("INSERT INTO "+ftsTable+" (submission_id, title, authors, body) VALUES (?, ?, ?, ?)",
		doc.SubmissionID, doc.Title, doc.Authors, doc.Body).Error
}

func (sqliteDialect) remove(tx *gorm.DB, id uint64) error {
	return tx.Exec("DELETE FROM "+ftsTable+" WHERE submission_id = ?", id).Error
}

func (sqliteDialect) clear(tx *gorm.DB) error {
	return tx.Exec("DELETE FROM " + ftsTable).Error
}

func (sqliteDialect) query(tx *gorm.DB, terms []term, q search.Query) ([]match, error) {
	var out []match

	tx = tx.Table(ftsTable).
		Select("d.submission_id AS submission_id, d.date_published AS date_published, -bm25("+ftsTable+") AS score").
		Joins("JOIN search_documents d ON d.submission_id = "+ftsTable+".submission_id").
		Where(ftsTable+" MATCH ?", ftsExpression(terms))

	err := filter(tx, q).Scan(&out).Error

	return out, err
}

// ftsExpression renders the terms as one FTS5 query: required terms joined by AND,
// optional ones grouped by OR and excluded ones appended with NOT.
func ftsExpression(terms []term) string {
	var must, should, not []string

	for _, t := range terms {
		s := ftsTerm(t)

		switch t.Occur {
		case search.Must:
			must = append(must, s)
		case search.Should:
			should = append(should, s)
		case search.MustNot:
			not = append(not, s)
		}
	}

	if len(should) > 0 {
		must = append(must, "("+strings.Join(should, " OR ")+")")
	}

	expr := strings.Join(must, " AND ")
	for _, n := range not {
		expr = "(" + expr + ") NOT " + n
	}

	return expr
}

func ftsTerm(t term) string {
	s := `"` + strings.Join(t.Keywords, " ") + `"`
	if t.Prefix {
		s += "*"
	}

	if len(t.Columns) < len(allColumns) {
		s = "{" + strings.Join(t.Columns, " ") + "} : " + s
	}

	return s
}
