package service

import (
	"context"

	"github.com/docport/docport/internal/model"
	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/repo"
)

type TenantService struct {
	tenants *repo.TenantRepo
}

func NewTenantService(tenants *repo.TenantRepo) *TenantService {
	return &TenantService{tenants: tenants}
}

func (s *TenantService) ListForUser(ctx context.Context, userID string) ([]model.TenantMembership, error) {
	return s.tenants.ListForUser(ctx, userID)
}

// EnsureMember guards every tenant-scoped operation; non-members get
// ErrForbidden, never a not-found that would leak tenant existence.
func (s *TenantService) EnsureMember(ctx context.Context, tenantID, userID string) error {
	ok, err := s.tenants.IsMember(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return appErr.ErrForbidden
	}
	return nil
}
