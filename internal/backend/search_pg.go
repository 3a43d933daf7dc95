/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storycore/internal/storage"
)

// SearchPG answers the same query the embedded index answers locally, but
// over the server's Postgres documents table, mapped to storage.SearchResult
// so local and remote results stay comparable row for row.
func SearchPG(ctx context.Context, db *sql.DB, projectID int64, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT d.id, d.doc_type, d.path, COALESCE(d.cell_num,-1), COALESCE(d.panel_id,''), ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(d.raw_text,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=10'), '') ")
		b.WriteString("FROM documents d WHERE d.project_id = $2 AND d.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text, projectID)
	} else {
		b.WriteString("SELECT d.id, d.doc_type, d.path, COALESCE(d.cell_num,-1), COALESCE(d.panel_id,''), '' ")
		b.WriteString("FROM documents d WHERE d.project_id = $1 ")
		args = append(args, projectID)
	}

	// Helper to add a parameter and return its placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.Types) > 0 {
		b.WriteString(" AND d.doc_type = ANY (" + place(q.Types) + ") ")
	}
	if s := strings.TrimSpace(q.PanelID); s != "" {
		b.WriteString(" AND d.panel_id = " + place(s) + " ")
	}
	// Cell ordinals are 1-based in the query, the cell_num column is 0-based.
	if q.CellFrom > 0 && q.CellTo > 0 && q.CellTo >= q.CellFrom {
		b.WriteString(" AND d.cell_num BETWEEN " + place(q.CellFrom-1) + " AND " + place(q.CellTo-1) + " ")
	} else if q.CellFrom > 0 {
		b.WriteString(" AND d.cell_num >= " + place(q.CellFrom-1) + " ")
	} else if q.CellTo > 0 {
		b.WriteString(" AND d.cell_num <= " + place(q.CellTo-1) + " ")
	}
	// Tags: require all tags to appear as @tag tokens in raw_text
	for _, t := range q.Tags {
		tt := strings.ToLower(strings.TrimSpace(t))
		if tt == "" {
			continue
		}
		b.WriteString(" AND lower(COALESCE(d.raw_text,'')) LIKE " + place("%@"+tt+"%") + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY d.cell_num NULLS LAST, d.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.Cell, &r.PanelID, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
