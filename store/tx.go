package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertResult is the outcome of an insert into a table with a uniqueness
// constraint. A duplicate is a normal result, not an error.
type InsertResult struct {
	ID        int64
	Duplicate bool
}

// Inserted reports a newly inserted row.
func Inserted(id int64) InsertResult {
	return InsertResult{ID: id}
}

// DuplicateOf reports that the row already existed with the given id. The id
// is 0 when the existing row could not be identified.
func DuplicateOf(id int64) InsertResult {
	return InsertResult{ID: id, Duplicate: true}
}

// Entity names a shared entity linked to articles.
type Entity int

const (
	Authors Entity = iota + 1
	Tags
	Categories
)

func (e Entity) String() string {
	switch e {
	case Authors:
		return "authors"
	case Tags:
		return "tags"
	case Categories:
		return "categories"
	default:
		return fmt.Sprintf("Entity(%d)", int(e))
	}
}

// linkTable returns the junction table and its entity column.
func (e Entity) linkTable() (table, column string) {
	switch e {
	case Authors:
		return "authors_in_articles", "author_id"
	case Tags:
		return "tags_in_articles", "tag_id"
	default:
		return "categories_in_articles", "category_id"
	}
}

// Tx is one commit window. It is not safe for concurrent use.
type Tx struct {
	tx       *sql.Tx
	isUnique func(error) bool
}

// InsertSummary inserts a summary, reporting a duplicate when the same text
// is already stored.
func (t *Tx) InsertSummary(ctx context.Context, text string) (InsertResult, error) {
	res, err := t.tx.ExecContext(ctx, "INSERT INTO summaries (summary) VALUES (?)", text)
	if t.isUnique(err) {
		id, err := t.lookup(ctx, "SELECT id FROM summaries WHERE summary = ?", text)
		if err != nil {
			return InsertResult{}, fmt.Errorf("failed to look up duplicate summary: %w", err)
		}
		return DuplicateOf(id), nil
	}
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to insert summary: %w", err)
	}
	return insertedFrom(res)
}

// InsertArticle inserts an article row, reporting a duplicate when the URL
// or the summary is already taken.
func (t *Tx) InsertArticle(ctx context.Context, title string, summaryID int64, published time.Time, url string) (InsertResult, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO articles (title, summary_id, publication_date, url) VALUES (?, ?, ?, ?)",
		title, summaryID, published.UTC(), url,
	)
	if t.isUnique(err) {
		id, err := t.lookup(ctx, "SELECT id FROM articles WHERE url = ?", url)
		if err == nil && id == 0 {
			id, err = t.lookup(ctx, "SELECT id FROM articles WHERE summary_id = ?", summaryID)
		}
		if err != nil {
			return InsertResult{}, fmt.Errorf("failed to look up duplicate article: %w", err)
		}
		return DuplicateOf(id), nil
	}
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to insert article: %w", err)
	}
	return insertedFrom(res)
}

// FindOrCreate returns the id of the entity with the given name, inserting
// it first if needed. It is not safe against concurrent writers to the same
// store.
func (t *Tx) FindOrCreate(ctx context.Context, entity Entity, name string) (id int64, created bool, err error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE name = ? LIMIT 1", entity)
	err = t.tx.QueryRowContext(ctx, query, name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to find %s %q: %w", entity, name, err)
	}

	res, err := t.tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", entity), name)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert %s %q: %w", entity, name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s id: %w", entity, err)
	}
	return id, true, nil
}

// Link records that an article references an entity.
func (t *Tx) Link(ctx context.Context, entity Entity, articleID, entityID int64) error {
	table, column := entity.linkTable()
	query := fmt.Sprintf("INSERT INTO %s (article_id, %s) VALUES (?, ?)", table, column)
	if _, err := t.tx.ExecContext(ctx, query, articleID, entityID); err != nil {
		return fmt.Errorf("failed to link %s: %w", entity, err)
	}
	return nil
}

// Savepoint marks a point the window can roll back to.
func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

// RollbackTo undoes everything since the named savepoint and releases it.
func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return err
	}
	return t.Release(ctx, name)
}

// Release forgets the named savepoint, keeping its changes.
func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

// Commit makes the window durable.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback discards the window. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// lookup returns the id selected by query, or 0 when it finds nothing.
func (t *Tx) lookup(ctx context.Context, query string, arg any) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertedFrom(res sql.Result) (InsertResult, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to read insert id: %w", err)
	}
	return Inserted(id), nil
}
