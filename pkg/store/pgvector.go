package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
)

// DimensionError is returned when the existing index was created with a
// different vector dimension than the one configured. This is a fatal
// configuration problem, never silently repaired.
type DimensionError struct {
	TableName string
	Expected  int
	Actual    int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("store: table %s has vector dimension %d, expected %d",
		e.TableName, e.Actual, e.Expected)
}

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore keeps chunk embeddings in a pgvector table keyed by the
// deterministic chunk id. Implements types.VectorIndex.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "news_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	return &VectorStore{
		config: config,
		pool:   pool,
	}, nil
}

// EnsureIndex creates the chunk table and its vector index if absent.
// An existing table with a mismatched dimension returns DimensionError.
func (vs *VectorStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension != vs.config.VectorDim {
		return &DimensionError{TableName: vs.config.TableName, Expected: vs.config.VectorDim, Actual: dimension}
	}

	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			link TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	// For a pre-existing table the CREATE above is a no-op, so verify
	// the embedding column's dimension matches what we were given.
	var actual int
	err := vs.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'`,
		vs.config.TableName).Scan(&actual)
	if err != nil {
		return fmt.Errorf("failed to inspect embedding column: %v", err)
	}
	if actual != dimension {
		return &DimensionError{TableName: vs.config.TableName, Expected: dimension, Actual: actual}
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Upsert writes every (chunk, vector) pair. Ids are deterministic, so a
// re-run overwrites prior rows instead of growing the corpus.
func (vs *VectorStore) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("store: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	for _, v := range vectors {
		if len(v) != vs.config.VectorDim {
			return 0, &DimensionError{TableName: vs.config.TableName, Expected: vs.config.VectorDim, Actual: len(v)}
		}
	}

	tx, err := vs.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, text, link, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			link = EXCLUDED.link,
			embedding = EXCLUDED.embedding,
			created_at = EXCLUDED.created_at`,
		vs.config.TableName)

	for i, chunk := range chunks {
		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err := tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.Text,
			chunk.SourceLink,
			pgvector.NewVector(vectors[i]),
			createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert chunk %s: %v", chunk.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}

	return len(chunks), nil
}

// Query returns the topK nearest chunks by cosine distance, most
// similar first.
func (vs *VectorStore) Query(ctx context.Context, vector []float32, topK int) ([]types.SearchHit, error) {
	if len(vector) != vs.config.VectorDim {
		return nil, &DimensionError{TableName: vs.config.TableName, Expected: vs.config.VectorDim, Actual: len(vector)}
	}
	if topK <= 0 {
		topK = 5
	}

	query := fmt.Sprintf(`
		SELECT id, text, link, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var hits []types.SearchHit
	for rows.Next() {
		var hit types.SearchHit
		if err := rows.Scan(&hit.ID, &hit.Text, &hit.Link, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
