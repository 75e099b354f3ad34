package blockstore

import "database/sql"

// SearchResult is one block matching a search.
type SearchResult struct {
	UUID    string `json:"uuid"`
	Page    string `json:"page"`
	Snippet string `json:"snippet"`
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.UUID, &r.Page, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
