/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes the in-app search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Filters are optional. Tags should be provided without the leading @.
// Types can restrict to kinds like: prompt, panel_notes, annotation,
// layer_name, layer_text, style_ref, preset_name, preset_desc, shots.
// PanelID restricts to one cell. CellFrom/CellTo are inclusive 1-based cell
// ordinals in row-major order (1..9); 0 means unset. Limit/Offset implement
// pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text     string
	PanelID  string
	Tags     []string
	Types    []string
	CellFrom int
	CellTo   int
	Limit    int
	Offset   int
}

// SearchResult represents a single match row.
// Snippet is an optional highlighted excerpt using [ ] markers when FTS text
// is used. Cell is -1 when the row is not panel-scoped.
type SearchResult struct {
	DocID   int64
	Type    string
	Path    string
	Cell    int
	PanelID string
	Snippet string
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it falls back to a non-FTS scan over documents with filters applied.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	// Build dynamic SQL
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.cell,-1), COALESCE(d.panel_id,''), snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.cell,-1), COALESCE(d.panel_id,''), ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	// Types filter (IN list)
	if len(q.Types) > 0 {
		sb.WriteString(" AND d.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	// Panel filter
	if s := strings.TrimSpace(q.PanelID); s != "" {
		sb.WriteString(" AND d.panel_id = ?\n")
		args = append(args, s)
	}
	// Cell range (ordinals are 1-based, the cell column is 0-based)
	if q.CellFrom > 0 && q.CellTo > 0 && q.CellTo >= q.CellFrom {
		sb.WriteString(" AND d.cell BETWEEN ? AND ?\n")
		args = append(args, q.CellFrom-1, q.CellTo-1)
	} else if q.CellFrom > 0 {
		sb.WriteString(" AND d.cell >= ?\n")
		args = append(args, q.CellFrom-1)
	} else if q.CellTo > 0 {
		sb.WriteString(" AND d.cell <= ?\n")
		args = append(args, q.CellTo-1)
	}
	// Tags: require all tags to appear as @tag tokens in text
	for _, t := range q.Tags {
		tt := strings.ToLower(strings.TrimSpace(t))
		if tt == "" {
			continue
		}
		sb.WriteString(" AND lower(d.text) LIKE ?\n")
		args = append(args, likeContains("@"+tt))
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY d.cell NULLS LAST, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.Cell, &r.PanelID, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func likeContains(s string) string { return "%" + s + "%" }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
