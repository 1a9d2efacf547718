package search

import (
	"sort"
	"time"
)

// Candidate is a matching submission before ranking, as collected by engines that
// score in Go.
type Candidate struct {
	ID            uint64
	Score         float64
	DatePublished *time.Time
}

// Page sorts candidates by the query order and cuts out the requested page.
// Ties are broken by newest publication, then by id.
func Page(cands []Candidate, q Query) *Results {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]

		if q.OrderBy == OrderDate {
			if c := compareDates(a.DatePublished, b.DatePublished); c != 0 {
				if q.Ascending {
					return c < 0
				}

				return c > 0
			}
		} else if a.Score != b.Score {
			if q.Ascending {
				return a.Score < b.Score
			}

			return a.Score > b.Score
		}

		if c := compareDates(a.DatePublished, b.DatePublished); c != 0 {
			return c > 0
		}

		return a.ID < b.ID
	})

	res := &Results{Total: int64(len(cands)), Page: q.Page, PerPage: q.PerPage, Hits: []Hit{}}

	from := min(q.Offset(), len(cands))
	to := min(from+q.PerPage, len(cands))

	for _, c := range cands[from:to] {
		res.Hits = append(res.Hits, Hit{ID: c.ID, Score: c.Score})
	}

	return res
}

func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// Combine applies the occurrence rules to per clause matches: every Must clause has to
// match, no MustNot clause may match and, when there are Should clauses, at least one
// has to match. Scores of matching clauses are summed.
func Combine(clauses []Clause, matches []map[uint64]float64) map[uint64]float64 {
	var (
		out      map[uint64]float64
		should   map[uint64]float64
		excluded = map[uint64]bool{}
		hasMust  bool
	)

	for i, c := range clauses {
		m := matches[i]

		switch c.Occur {
		case Must:
			if !hasMust {
				out = make(map[uint64]float64, len(m))
				for id, s := range m {
					out[id] = s
				}

				hasMust = true

				continue
			}

			for id := range out {
				s, ok := m[id]
				if !ok {
					delete(out, id)
					continue
				}

				out[id] += s
			}
		case Should:
			if should == nil {
				should = map[uint64]float64{}
			}

			for id, s := range m {
				should[id] += s
			}
		case MustNot:
			for id := range m {
				excluded[id] = true
			}
		}
	}

	switch {
	case !hasMust:
		out = should
	case should != nil:
		for id := range out {
			s, ok := should[id]
			if !ok {
				delete(out, id)
				continue
			}

			out[id] += s
		}
	}

	for id := range excluded {
		delete(out, id)
	}

	if out == nil {
		out = map[uint64]float64{}
	}

	return out
}
