package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"internmatch/internal/database"
	"internmatch/internal/domain/matching"

	"github.com/pgvector/pgvector-go"
)

// PostgresVectorCache keeps embeddings in the embedding_cache table as
// pgvector columns. Expired rows are invisible to reads and removed by
// PurgeExpired.
type PostgresVectorCache struct {
	db    database.DB
	model string
	now   func() time.Time
}

func NewPostgresVectorCache(db database.DB, model string) *PostgresVectorCache {
	return &PostgresVectorCache{db: db, model: model, now: time.Now}
}

func (c *PostgresVectorCache) GetMany(ctx context.Context, keys []string) (map[string]matching.Vector, error) {
	out := make(map[string]matching.Vector, len(keys))
	if c == nil || c.db == nil || len(keys) == 0 {
		return out, nil
	}

	rows, err := c.db.Query(ctx, `
SELECT content_hash, embedding
FROM embedding_cache
WHERE content_hash = ANY($1) AND expires_at > $2`,
		keys, c.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query embedding cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var v pgvector.Vector
		if err := rows.Scan(&key, &v); err != nil {
			return nil, fmt.Errorf("scan embedding cache: %w", err)
		}
		out[key] = matching.Vector(v.Slice())
	}
	return out, rows.Err()
}

// SetMany upserts entries in one transaction, in key order so concurrent
// writers lock rows consistently.
func (c *PostgresVectorCache) SetMany(ctx context.Context, entries map[string]matching.Vector, ttl time.Duration) error {
	if c == nil || c.db == nil || len(entries) == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	expires := c.now().UTC().Add(ttl)

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return database.WithinTx(ctx, c.db, func(tx database.Tx) error {
		for _, k := range keys {
			if _, err := tx.Exec(ctx, `
INSERT INTO embedding_cache (content_hash, model, embedding, expires_at)
VALUES ($1, $2, $3::vector, $4)
ON CONFLICT (content_hash) DO UPDATE
SET embedding = EXCLUDED.embedding, model = EXCLUDED.model, expires_at = EXCLUDED.expires_at`,
				k, c.model, pgvector.NewVector(entries[k]), expires,
			); err != nil {
				return fmt.Errorf("upsert embedding cache: %w", err)
			}
		}
		return nil
	})
}

func (c *PostgresVectorCache) PurgeExpired(ctx context.Context) (int64, error) {
	if c == nil || c.db == nil {
		return 0, errors.New("nil db")
	}
	n, err := c.db.Exec(ctx, `DELETE FROM embedding_cache WHERE expires_at <= $1`, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge embedding cache: %w", err)
	}
	return n, nil
}
