package repo

import (
	"context"
	"database/sql"

	"github.com/docport/docport/internal/model"
	appErr "github.com/docport/docport/internal/pkg/errors"
)

type DocumentSummaryRepo struct {
	db *sql.DB
}

func NewDocumentSummaryRepo(db *sql.DB) *DocumentSummaryRepo {
	return &DocumentSummaryRepo{db: db}
}

// Upsert writes at most one summary per document; a concurrent generation
// losing the race overwrites with its own result instead of failing.
func (r *DocumentSummaryRepo) Upsert(ctx context.Context, docID, summary, modelUsed string, now int64) error {
	const query = `
		INSERT INTO document_summaries (document_id, summary, model_used, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			model_used = EXCLUDED.model_used,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, docID, summary, modelUsed, now, now)
	return err
}

func (r *DocumentSummaryRepo) GetByDocID(ctx context.Context, docID string) (*model.DocumentSummary, error) {
	const query = `SELECT document_id, summary, model_used, ctime, mtime FROM document_summaries WHERE document_id = $1`
	row := r.db.QueryRowContext(ctx, query, docID)
	var item model.DocumentSummary
	if err := row.Scan(&item.DocumentID, &item.Summary, &item.ModelUsed, &item.Ctime, &item.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}
