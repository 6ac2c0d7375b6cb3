package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docport/docport/internal/model"
	"github.com/docport/docport/internal/pkg/dbutil"
	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/pkg/password"
)

const (
	ShareStateActive  = 1
	ShareStateExpired = 2
	ShareStateLocked  = 3
)

var shareFields = []string{"id", "document_id", "recipient_email", "created_by", "code_hash", "state", "failed_attempts", "verified_at", "otp_expires_at", "ctime", "mtime"}

type ShareRepo struct {
	db *sql.DB
}

func NewShareRepo(db *sql.DB) *ShareRepo {
	return &ShareRepo{db: db}
}

func (r *ShareRepo) Create(ctx context.Context, share *model.Share) error {
	data := map[string]interface{}{
		"id":              share.ID,
		"document_id":     share.DocumentID,
		"recipient_email": share.RecipientEmail,
		"created_by":      share.CreatedBy,
		"code_hash":       share.CodeHash,
		"state":           share.State,
		"failed_attempts": share.FailedAttempts,
		"verified_at":     share.VerifiedAt,
		"otp_expires_at":  share.OtpExpiresAt,
		"ctime":           share.Ctime,
		"mtime":           share.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("document_shares", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ShareRepo) GetByID(ctx context.Context, id string) (*model.Share, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("document_shares", where, shareFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var share model.Share
	if err := rows.Scan(&share.ID, &share.DocumentID, &share.RecipientEmail, &share.CreatedBy, &share.CodeHash, &share.State, &share.FailedAttempts, &share.VerifiedAt, &share.OtpExpiresAt, &share.Ctime, &share.Mtime); err != nil {
		return nil, err
	}
	return &share, nil
}

// VerifiedShare carries the document metadata released to a recipient after a
// successful code check.
type VerifiedShare struct {
	ShareID      string
	DocumentID   string
	FilePath     string
	FileName     string
	OtpExpiresAt int64
}

// Verify runs the whole lookup-compare-bookkeeping sequence inside one
// transaction with the share row locked, so concurrent attempts cannot race
// the attempt counter and there is no gap between reading the code hash and
// recording the outcome.
func (r *ShareRepo) Verify(ctx context.Context, shareID, code string, now int64, maxAttempts int) (*VerifiedShare, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		SELECT s.code_hash, s.state, s.failed_attempts, s.verified_at, s.otp_expires_at,
			d.id, d.file_path, d.file_name
		FROM document_shares s
		JOIN documents d ON d.id = s.document_id
		WHERE s.id = $1
		FOR UPDATE OF s
	`
	row := tx.QueryRowContext(ctx, query, shareID)
	var (
		codeHash       string
		state          int
		failedAttempts int
		verifiedAt     int64
		expiresAt      int64
		docID          string
		filePath       string
		fileName       string
	)
	if err := row.Scan(&codeHash, &state, &failedAttempts, &verifiedAt, &expiresAt, &docID, &filePath, &fileName); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if state == ShareStateLocked {
		return nil, appErr.ErrShareLocked
	}
	if state == ShareStateExpired || expiresAt <= now {
		return nil, appErr.ErrShareExpired
	}
	if err := password.Compare(codeHash, code); err != nil {
		failedAttempts++
		newState := state
		if failedAttempts >= maxAttempts {
			newState = ShareStateLocked
		}
		const bump = `UPDATE document_shares SET failed_attempts = $1, state = $2, mtime = $3 WHERE id = $4`
		if _, err := tx.ExecContext(ctx, bump, failedAttempts, newState, now, shareID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		if newState == ShareStateLocked {
			return nil, appErr.ErrShareLocked
		}
		return nil, appErr.ErrCodeMismatch
	}
	if verifiedAt == 0 {
		const mark = `UPDATE document_shares SET verified_at = $1, failed_attempts = 0, mtime = $1 WHERE id = $2`
		if _, err := tx.ExecContext(ctx, mark, now, shareID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &VerifiedShare{
		ShareID:      shareID,
		DocumentID:   docID,
		FilePath:     filePath,
		FileName:     fileName,
		OtpExpiresAt: expiresAt,
	}, nil
}

// MarkExpiredBefore flips active shares whose code expiry passed. Rows are
// never deleted; retention stays with the operator.
func (r *ShareRepo) MarkExpiredBefore(ctx context.Context, now int64) (int64, error) {
	const query = `UPDATE document_shares SET state = $1, mtime = $2 WHERE state = $3 AND otp_expires_at <= $2`
	result, err := r.db.ExecContext(ctx, query, ShareStateExpired, now, ShareStateActive)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
