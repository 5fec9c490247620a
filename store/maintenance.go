package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/config"
)

// Tables returns the table names in creation order.
func (s *Store) Tables() []string {
	return slices.Clone(tables)
}

func checkTable(table string) error {
	if !slices.Contains(tables, table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

// CountRows returns the number of rows in table.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Dump returns every row of table as text, with its column names. NULL
// values are rendered as empty strings.
func (s *Store) Dump(ctx context.Context, table string) ([]string, [][]string, error) {
	if err := checkTable(table); err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	var out [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = v.String
		}
		out = append(out, row)
	}

	return columns, out, rows.Err()
}

// ListArticles returns the most recently published articles with their
// authors, tags and categories. Seq numbers follow the returned order.
func (s *Store) ListArticles(ctx context.Context, limit int) ([]article.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.title, s.summary, a.url, a.publication_date
		FROM articles a
		JOIN summaries s ON s.id = a.summary_id
		ORDER BY a.publication_date DESC, a.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	type row struct {
		id     int64
		fields article.Fields
	}
	var found []row
	for rows.Next() {
		var r row
		var title, summary, url sql.NullString
		var published sql.NullTime
		if err := rows.Scan(&r.id, &title, &summary, &url, &published); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		r.fields = article.Fields{
			Title:     title.String,
			Summary:   summary.String,
			Link:      url.String,
			Published: published.Time,
		}
		found = append(found, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	articles := make([]article.Article, 0, len(found))
	for i, r := range found {
		for _, e := range []struct {
			entity Entity
			dst    *[]string
		}{
			{Authors, &r.fields.Authors},
			{Tags, &r.fields.Tags},
			{Categories, &r.fields.Categories},
		} {
			names, err := s.linkedNames(ctx, e.entity, r.id)
			if err != nil {
				return nil, err
			}
			*e.dst = names
		}
		articles = append(articles, article.New(i+1, r.fields))
	}
	return articles, nil
}

// linkedNames returns the names of the entities linked to an article in
// link order.
func (s *Store) linkedNames(ctx context.Context, entity Entity, articleID int64) ([]string, error) {
	table, column := entity.linkTable()
	query := fmt.Sprintf(
		"SELECT e.name FROM %s l JOIN %s e ON e.id = l.%s WHERE l.article_id = ?",
		table, entity, column,
	)

	rows, err := s.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", entity, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entity, err)
		}
		names = append(names, name.String)
	}
	return names, rows.Err()
}

// dropTables drops every table, junction tables first.
func (s *Store) dropTables(ctx context.Context) error {
	for _, table := range slices.Backward(tables) {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}

// Reset drops and recreates every table.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.dropTables(ctx); err != nil {
		return err
	}
	if err := s.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Drop removes all stored data: the tables for sqlite, the whole database
// for mysql. The store should be closed afterwards.
func (s *Store) Drop(ctx context.Context) error {
	if s.cfg.Driver != config.DriverMySQL {
		return s.dropTables(ctx)
	}

	mc := mysqlConfig(s.cfg)
	if _, err := s.db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+quoteIdent(mc.DBName)); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	return nil
}
