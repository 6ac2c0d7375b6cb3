package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docport/docport/internal/filestore"
	"github.com/docport/docport/internal/model"
	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/pkg/timeutil"
	"github.com/docport/docport/internal/repo"
)

type DocumentService struct {
	docs    *repo.DocumentRepo
	tenants *TenantService
	store   filestore.Store
	urlTTL  time.Duration
}

func NewDocumentService(docs *repo.DocumentRepo, tenants *TenantService, store filestore.Store, urlTTL time.Duration) *DocumentService {
	return &DocumentService{docs: docs, tenants: tenants, store: store, urlTTL: urlTTL}
}

type UploadInput struct {
	TenantID string
	FileName string
	MimeType string
	Size     int64
	Content  io.ReadSeeker
}

func (s *DocumentService) Upload(ctx context.Context, userID string, input UploadInput) (*model.Document, error) {
	input.FileName = strings.TrimSpace(input.FileName)
	if input.TenantID == "" || input.FileName == "" || input.Content == nil {
		return nil, appErr.ErrInvalid
	}
	if err := s.tenants.EnsureMember(ctx, input.TenantID, userID); err != nil {
		return nil, err
	}
	if input.MimeType == "" {
		input.MimeType = "application/pdf"
	}
	now := timeutil.NowUnix()
	filePath := fmt.Sprintf("%s/%s_%s", input.TenantID, time.Now().Format("20060102_150405"), input.FileName)
	if err := s.store.Save(ctx, filePath, input.Content, input.Size, input.MimeType); err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}
	doc := &model.Document{
		ID:         newID(),
		TenantID:   input.TenantID,
		UploadedBy: userID,
		FileName:   input.FileName,
		FilePath:   filePath,
		FileSize:   input.Size,
		MimeType:   input.MimeType,
		State:      repo.DocumentStateNormal,
		Ctime:      now,
		Mtime:      now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID, tenantID string) ([]model.Document, error) {
	if err := s.tenants.EnsureMember(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	return s.docs.ListByTenant(ctx, tenantID)
}

// GetForMember returns the document only when the caller belongs to its
// tenant.
func (s *DocumentService) GetForMember(ctx context.Context, userID, docID string) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.EnsureMember(ctx, doc.TenantID, userID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	doc, err := s.GetForMember(ctx, userID, docID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		// keep going, the row removal is what users see
		logutil.GetLogger(ctx).Warn("delete stored file failed", zap.String("file_path", doc.FilePath), zap.Error(err))
	}
	return s.docs.Delete(ctx, docID, timeutil.NowUnix())
}

func (s *DocumentService) DownloadURL(ctx context.Context, userID, docID string) (string, error) {
	doc, err := s.GetForMember(ctx, userID, docID)
	if err != nil {
		return "", err
	}
	return s.store.SignedURL(ctx, doc.FilePath, s.urlTTL)
}
