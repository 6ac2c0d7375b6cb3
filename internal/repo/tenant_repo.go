package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docport/docport/internal/model"
	"github.com/docport/docport/internal/pkg/dbutil"
	appErr "github.com/docport/docport/internal/pkg/errors"
)

type TenantRepo struct {
	db *sql.DB
}

func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Create(ctx context.Context, tenant *model.Tenant) error {
	data := map[string]interface{}{
		"id":    tenant.ID,
		"name":  tenant.Name,
		"ctime": tenant.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("tenants", []map[string]interface{}{data})
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

func (r *TenantRepo) AddMember(ctx context.Context, tenantID, userID, role string, now int64) error {
	data := map[string]interface{}{
		"tenant_id": tenantID,
		"user_id":   userID,
		"role":      role,
		"ctime":     now,
	}
	sqlStr, args, err := builder.BuildInsert("tenant_members", []map[string]interface{}{data})
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

func (r *TenantRepo) ListForUser(ctx context.Context, userID string) ([]model.TenantMembership, error) {
	sqlStr := `
		SELECT t.id, t.name, m.role
		FROM tenant_members m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_id = ?
		ORDER BY t.name
	`
	args := []interface{}{userID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.TenantMembership, 0)
	for rows.Next() {
		var item model.TenantMembership
		if err := rows.Scan(&item.TenantID, &item.Name, &item.Role); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *TenantRepo) IsMember(ctx context.Context, tenantID, userID string) (bool, error) {
	where := map[string]interface{}{"tenant_id": tenantID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("tenant_members", where, []string{"user_id"})
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}
