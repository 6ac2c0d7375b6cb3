package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docport/docport/internal/config"
	"github.com/docport/docport/internal/filestore"
	"github.com/docport/docport/internal/model"
	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/pkg/jwt"
	"github.com/docport/docport/internal/pkg/otp"
	"github.com/docport/docport/internal/pkg/password"
	"github.com/docport/docport/internal/pkg/timeutil"
	"github.com/docport/docport/internal/repo"
)

// grantTokenMaxTTL caps the capability token lifetime regardless of how much
// share validity remains.
const grantTokenMaxTTL = time.Hour

type ShareService struct {
	shares    *repo.ShareRepo
	docs      *DocumentService
	store     filestore.Store
	sender    EmailSender
	jwtSecret []byte
	cfg       config.ShareConfig
}

func NewShareService(shares *repo.ShareRepo, docs *DocumentService, store filestore.Store, sender EmailSender, secret []byte, cfg config.ShareConfig) *ShareService {
	return &ShareService{shares: shares, docs: docs, store: store, sender: sender, jwtSecret: secret, cfg: cfg}
}

// AccessGrant is the session-held proof that code verification succeeded. It
// is never persisted; the Token alone authorizes download/summary calls for
// this share.
type AccessGrant struct {
	ShareID    string `json:"share_id"`
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
	FileName   string `json:"file_name"`
	Token      string `json:"grant_token"`
}

// Create issues a share: persists the record with a hashed 6-digit code and
// emails the recipient a link plus the plaintext code. An email failure after
// persistence leaves the record valid; the code is simply undeliverable
// through this channel.
func (s *ShareService) Create(ctx context.Context, userID, docID, recipientEmail string) (*model.Share, error) {
	recipientEmail = strings.TrimSpace(strings.ToLower(recipientEmail))
	if docID == "" || recipientEmail == "" {
		return nil, appErr.ErrInvalid
	}
	doc, err := s.docs.GetForMember(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	code := otp.New(otp.DefaultLength)
	hash, err := password.Hash(code)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	share := &model.Share{
		ID:             newID(),
		DocumentID:     doc.ID,
		RecipientEmail: recipientEmail,
		CreatedBy:      userID,
		CodeHash:       hash,
		State:          repo.ShareStateActive,
		OtpExpiresAt:   now + int64(s.cfg.CodeTTLDays)*24*3600,
		Ctime:          now,
		Mtime:          now,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	link := s.shareLink(share.ID)
	body, err := renderShareEmail(doc.FileName, link, code, s.cfg.CodeTTLDays)
	if err != nil {
		return nil, err
	}
	subject := fmt.Sprintf("Document Shared: %s", doc.FileName)
	if err := s.sender.Send(recipientEmail, subject, body); err != nil {
		logutil.GetLogger(ctx).Error("share email dispatch failed",
			zap.String("share_id", share.ID),
			zap.String("recipient", recipientEmail),
			zap.Error(err),
		)
		return nil, fmt.Errorf("send share email: %w", err)
	}
	return share, nil
}

func (s *ShareService) shareLink(shareID string) string {
	base := strings.TrimSuffix(s.cfg.BaseURL, "/")
	return base + "/View_Document?share_id=" + url.QueryEscape(shareID)
}

// Verify checks the submitted code against the share record in one atomic
// repo call and, on success, mints a capability token for the remaining share
// validity (capped at one hour).
func (s *ShareService) Verify(ctx context.Context, shareID, code string) (*AccessGrant, error) {
	shareID = strings.TrimSpace(shareID)
	code = strings.TrimSpace(code)
	if shareID == "" || !otp.IsCode(code, otp.DefaultLength) {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	verified, err := s.shares.Verify(ctx, shareID, code, now, s.cfg.MaxAttempts)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(verified.OtpExpiresAt-now) * time.Second
	if ttl > grantTokenMaxTTL {
		ttl = grantTokenMaxTTL
	}
	token, err := jwt.GenerateShareToken(verified.ShareID, verified.DocumentID, s.jwtSecret, ttl)
	if err != nil {
		return nil, err
	}
	return &AccessGrant{
		ShareID:    verified.ShareID,
		DocumentID: verified.DocumentID,
		FilePath:   verified.FilePath,
		FileName:   verified.FileName,
		Token:      token,
	}, nil
}

// GrantedDownloadURL exchanges a verified grant for a time-limited signed
// storage URL. The storage credentials never leave the process; only the
// presigned URL does.
func (s *ShareService) GrantedDownloadURL(ctx context.Context, grant *jwt.ShareClaims) (string, error) {
	share, err := s.shares.GetByID(ctx, grant.ShareID)
	if err != nil {
		return "", err
	}
	if share.State != repo.ShareStateActive || share.OtpExpiresAt <= timeutil.NowUnix() {
		return "", appErr.ErrShareExpired
	}
	doc, err := s.docs.docs.GetByID(ctx, share.DocumentID)
	if err != nil {
		return "", err
	}
	return s.store.SignedURL(ctx, doc.FilePath, time.Duration(s.cfg.URLTTLSeconds)*time.Second)
}

// SharedDocument resolves the document a grant points at, re-checking that
// the share is still live.
func (s *ShareService) SharedDocument(ctx context.Context, grant *jwt.ShareClaims) (*model.Document, error) {
	share, err := s.shares.GetByID(ctx, grant.ShareID)
	if err != nil {
		return nil, err
	}
	if share.State != repo.ShareStateActive || share.OtpExpiresAt <= timeutil.NowUnix() {
		return nil, appErr.ErrShareExpired
	}
	return s.docs.docs.GetByID(ctx, share.DocumentID)
}

// SweepExpired marks shares past their code expiry; used by the cron job.
func (s *ShareService) SweepExpired(ctx context.Context) (int64, error) {
	return s.shares.MarkExpiredBefore(ctx, timeutil.NowUnix())
}
