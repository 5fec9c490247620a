package store

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pevans/coinscrape/article"
)

const (
	defaultCacheSize = 4096
	articleSavepoint = "article"
)

// PersistResult counts what a Persist call did. Saved counts committed
// articles only.
type PersistResult struct {
	Saved      int
	Duplicates int
}

type entityKey struct {
	entity Entity
	name   string
}

// Persister writes batches of articles, committing every batchSize inserted
// articles.
type Persister struct {
	store     *Store
	batchSize int
	cache     *lru.Cache[entityKey, int64]
}

// NewPersister creates a persister over store. batchSize must be at least 1.
func NewPersister(store *Store, batchSize int) (*Persister, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}

	cache, err := lru.New[entityKey, int64](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity cache: %w", err)
	}

	return &Persister{
		store:     store,
		batchSize: batchSize,
		cache:     cache,
	}, nil
}

// Persist writes articles in order. An article whose summary or URL is
// already stored is skipped with a warning and leaves no rows behind. Any
// other error rolls back the open commit window and is returned; windows
// committed before it stay committed.
func (p *Persister) Persist(ctx context.Context, articles []article.Article) (PersistResult, error) {
	var result PersistResult

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return result, err
	}

	pending := 0
	for _, a := range articles {
		duplicate, err := p.persistOne(ctx, tx, a)
		if err != nil {
			tx.Rollback()
			p.cache.Purge()
			return result, fmt.Errorf("failed to persist %s: %w", a.Link, err)
		}
		if duplicate {
			slog.WarnContext(ctx, "article already stored, skipping", "url", a.Link)
			result.Duplicates++
			continue
		}

		pending++
		if pending < p.batchSize {
			continue
		}

		if err := tx.Commit(); err != nil {
			p.cache.Purge()
			return result, fmt.Errorf("failed to commit batch: %w", err)
		}
		result.Saved += pending
		pending = 0

		if tx, err = p.store.Begin(ctx); err != nil {
			return result, err
		}
	}

	if err := tx.Commit(); err != nil {
		p.cache.Purge()
		return result, fmt.Errorf("failed to commit batch: %w", err)
	}
	result.Saved += pending

	slog.DebugContext(ctx, "persisted articles", "saved", result.Saved, "duplicates", result.Duplicates)
	return result, nil
}

// persistOne writes one article and its links inside a savepoint. It
// reports whether the article was a duplicate.
func (p *Persister) persistOne(ctx context.Context, tx *Tx, a article.Article) (bool, error) {
	if err := tx.Savepoint(ctx, articleSavepoint); err != nil {
		return false, fmt.Errorf("failed to set savepoint: %w", err)
	}

	summary, err := tx.InsertSummary(ctx, a.Summary)
	if err != nil {
		return false, err
	}
	if summary.Duplicate {
		return true, tx.RollbackTo(ctx, articleSavepoint)
	}

	row, err := tx.InsertArticle(ctx, a.Title, summary.ID, a.Published, a.Link)
	if err != nil {
		return false, err
	}
	if row.Duplicate {
		return true, tx.RollbackTo(ctx, articleSavepoint)
	}

	links := []struct {
		entity Entity
		names  []string
	}{
		{Authors, a.Authors},
		{Tags, a.Tags},
		{Categories, a.Categories},
	}
	for _, l := range links {
		for _, name := range l.names {
			id, err := p.entityID(ctx, tx, l.entity, name)
			if err != nil {
				return false, err
			}
			if err := tx.Link(ctx, l.entity, row.ID, id); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Release(ctx, articleSavepoint); err != nil {
		return false, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return false, nil
}

// entityID resolves an entity through the cache before the database.
func (p *Persister) entityID(ctx context.Context, tx *Tx, entity Entity, name string) (int64, error) {
	key := entityKey{entity: entity, name: name}
	if id, ok := p.cache.Get(key); ok {
		return id, nil
	}

	id, _, err := tx.FindOrCreate(ctx, entity, name)
	if err != nil {
		return 0, err
	}
	p.cache.Add(key, id)
	return id, nil
}
