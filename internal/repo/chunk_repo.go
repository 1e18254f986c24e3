package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/manualkit/manualkit/internal/model"
	"github.com/manualkit/manualkit/internal/pkg/dbutil"
	xerrors "github.com/manualkit/manualkit/internal/pkg/errors"
)

const chunkTable = "manual_chunks"

var chunkFields = []string{"id", "content", "source", "page_number", "safety_level", "created_at"}

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Upsert inserts the chunk or refreshes its metadata when the id already
// exists. The embedding column is left untouched so re-ingesting a source
// does not discard vectors computed by the backfill job.
func (r *ChunkRepo) Upsert(ctx context.Context, chunk *model.Chunk) error {
	const query = `
		INSERT INTO manual_chunks (id, content, source, page_number, safety_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			page_number = EXCLUDED.page_number,
			safety_level = EXCLUDED.safety_level
	`
	sqlStr, args := dbutil.Finalize(query, []interface{}{
		chunk.ID, chunk.Content, chunk.Source, chunk.PageNumber, chunk.SafetyLevel, chunk.CreatedAt,
	})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChunkRepo) AttachEmbedding(ctx context.Context, id string, embedding []float32) error {
	const query = `UPDATE manual_chunks SET embedding = ? WHERE id = ?`
	sqlStr, args := dbutil.Finalize(query, []interface{}{pgvector.NewVector(embedding), id})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ListEmbedded returns every chunk that carries a vector. Chunks still
// waiting on the backfill job are excluded from search entirely.
func (r *ChunkRepo) ListEmbedded(ctx context.Context) ([]model.Chunk, error) {
	const query = `
		SELECT id, content, embedding, source, page_number, safety_level, created_at
		FROM manual_chunks
		WHERE embedding IS NOT NULL
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		var vec pgvector.Vector
		if err := rows.Scan(&chunk.ID, &chunk.Content, &vec, &chunk.Source,
			&chunk.PageNumber, &chunk.SafetyLevel, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunk.Embedding = vec.Slice()
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) ListPending(ctx context.Context, limit int) ([]model.Chunk, error) {
	const query = `
		SELECT id, content, source, page_number, safety_level, created_at
		FROM manual_chunks
		WHERE embedding IS NULL
		ORDER BY created_at
		LIMIT ?
	`
	sqlStr, args := dbutil.Finalize(query, []interface{}{limit})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.Source,
			&chunk.PageNumber, &chunk.SafetyLevel, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*model.Chunk, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect(chunkTable, where, chunkFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var chunk model.Chunk
	if err := row.Scan(&chunk.ID, &chunk.Content, &chunk.Source,
		&chunk.PageNumber, &chunk.SafetyLevel, &chunk.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &chunk, nil
}

func (r *ChunkRepo) DeleteBySource(ctx context.Context, source string) (int64, error) {
	where := map[string]interface{}{
		"source": source,
	}
	sqlStr, args, err := builder.BuildDelete(chunkTable, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ChunkRepo) Stats(ctx context.Context) (total int64, embedded int64, err error) {
	const query = `
		SELECT COUNT(*), COUNT(embedding)
		FROM manual_chunks
	`
	row := r.db.QueryRowContext(ctx, query)
	if err := row.Scan(&total, &embedded); err != nil {
		return 0, 0, err
	}
	return total, embedded, nil
}
