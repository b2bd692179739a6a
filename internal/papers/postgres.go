package papers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/onnwee/citation-map/internal/logger"
)

// PostgresSource reads papers from a metadata table and citation links from a
// pcite table whose refs column holds encoded reference blobs.
//
//	meta:  id, maincat, keywords (comma separated)
//	pcite: id, numcites, refs (blob of LE32 id + LE16 count)
//
// References to papers missing from the metadata table point outside the
// mapped corpus and are dropped rather than rejected.
type PostgresSource struct {
	DB             *sql.DB
	MetaTable      string
	CiteTable      string
	ReductionDepth int
}

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context) (*Set, error) {
	meta := pq.QuoteIdentifier(s.MetaTable)
	cite := pq.QuoteIdentifier(s.CiteTable)

	rows, err := s.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, COALESCE(maincat, ''), COALESCE(keywords, '') FROM %s ORDER BY id`, meta))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.MetaTable, err)
	}
	set := &Set{}
	for rows.Next() {
		var (
			p        Paper
			id       int64
			keywords string
		)
		if err := rows.Scan(&id, &p.Category, &keywords); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan %s: %w", s.MetaTable, err)
		}
		p.ID = uint32(id)
		if keywords != "" {
			for _, kw := range strings.Split(keywords, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					p.Keywords = append(p.Keywords, kw)
				}
			}
		}
		set.Papers = append(set.Papers, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.MetaTable, err)
	}

	idx := set.Index()
	rows, err = s.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, COALESCE(numcites, 0), refs FROM %s`, cite))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.CiteTable, err)
	}
	defer rows.Close()

	dropped := 0
	for rows.Next() {
		var (
			id       int64
			numCites int64
			refs     []byte
		)
		if err := rows.Scan(&id, &numCites, &refs); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.CiteTable, err)
		}
		from, ok := idx[uint32(id)]
		if !ok {
			continue
		}
		set.Papers[from].NumCites = int(numCites)

		entries, err := DecodeBlob(refs)
		if err != nil {
			return nil, fmt.Errorf("paper %d refs: %w", id, err)
		}
		for _, e := range entries {
			if _, ok := idx[e.ID]; !ok || e.ID == uint32(id) {
				dropped++
				continue
			}
			w := float64(e.Count)
			if w < 1 {
				w = 1
			}
			set.Links = append(set.Links, Link{From: uint32(id), To: e.ID, Weight: w})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.CiteTable, err)
	}
	if dropped > 0 {
		logger.Debug("dropped references outside the corpus", "count", dropped)
	}

	set.Normalize()
	if err := set.Validate(); err != nil {
		return nil, err
	}
	TransitiveReduce(set, s.ReductionDepth)
	return set, nil
}
