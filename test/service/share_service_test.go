package service_test

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docport/docport/internal/config"
	"github.com/docport/docport/internal/filestore"
	"github.com/docport/docport/internal/model"
	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/repo"
	"github.com/docport/docport/internal/service"
	"github.com/docport/docport/test/testutil"
)

// the access code is rendered as the only h1 in the email body
var codePattern = regexp.MustCompile(`<h1>(\d{6})</h1>`)

type captureSender struct {
	mu     sync.Mutex
	to     []string
	bodies []string
}

func (s *captureSender) Send(to, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.bodies = append(s.bodies, htmlBody)
	return nil
}

func (s *captureSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return ""
	}
	match := codePattern.FindStringSubmatch(s.bodies[len(s.bodies)-1])
	if match == nil {
		return ""
	}
	return match[1]
}

type shareFixture struct {
	shares *service.ShareService
	docs   *service.DocumentService
	sender *captureSender
	doc    *model.Document
	userID string
	conn   *sql.DB
}

func newShareFixture(t *testing.T) *shareFixture {
	conn, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir":        t.TempDir(),
			"public_url": "http://files.test",
		},
	})
	require.NoError(t, err)

	userRepo := repo.NewUserRepo(conn)
	tenantRepo := repo.NewTenantRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	shareRepo := repo.NewShareRepo(conn)

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	userID := "user-" + suffix
	tenantID := "tenant-" + suffix
	now := time.Now().Unix()
	require.NoError(t, userRepo.Create(context.Background(), &model.User{
		ID: userID, Email: "owner-" + suffix + "@example.com", State: 1, Ctime: now, Mtime: now,
	}))
	require.NoError(t, tenantRepo.Create(context.Background(), &model.Tenant{
		ID: tenantID, Name: "t-" + suffix, Ctime: now,
	}))
	require.NoError(t, tenantRepo.AddMember(context.Background(), tenantID, userID, "owner", now))

	sender := &captureSender{}
	tenants := service.NewTenantService(tenantRepo)
	docs := service.NewDocumentService(docRepo, tenants, store, time.Hour)
	shares := service.NewShareService(shareRepo, docs, store, sender, []byte("test-secret"), config.ShareConfig{
		BaseURL:       "https://docs.test",
		CodeTTLDays:   7,
		MaxAttempts:   5,
		URLTTLSeconds: 3600,
	})

	doc, err := docs.Upload(context.Background(), userID, service.UploadInput{
		TenantID: tenantID,
		FileName: "report-" + suffix + ".pdf",
		MimeType: "application/pdf",
		Size:     11,
		Content:  bytes.NewReader([]byte("pdf content")),
	})
	require.NoError(t, err)

	return &shareFixture{shares: shares, docs: docs, sender: sender, doc: doc, userID: userID, conn: conn}
}

func TestShareVerifyWrongThenRightCode(t *testing.T) {
	fx := newShareFixture(t)
	ctx := context.Background()

	share, err := fx.shares.Create(ctx, fx.userID, fx.doc.ID, "reader@example.com")
	require.NoError(t, err)
	require.Equal(t, repo.ShareStateActive, share.State)
	require.Equal(t, []string{"reader@example.com"}, fx.sender.to)

	code := fx.sender.lastCode()
	require.Len(t, code, 6)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = fx.shares.Verify(ctx, share.ID, wrong)
	require.ErrorIs(t, err, appErr.ErrCodeMismatch)

	grant, err := fx.shares.Verify(ctx, share.ID, code)
	require.NoError(t, err)
	require.Equal(t, share.ID, grant.ShareID)
	require.Equal(t, fx.doc.ID, grant.DocumentID)
	require.Equal(t, fx.doc.FilePath, grant.FilePath)
	require.Equal(t, fx.doc.FileName, grant.FileName)
	require.NotEmpty(t, grant.Token)
}

func TestShareVerifyUnknownID(t *testing.T) {
	fx := newShareFixture(t)

	_, err := fx.shares.Verify(context.Background(), "no-such-share", "123456")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestShareVerifyRejectsMalformedInput(t *testing.T) {
	fx := newShareFixture(t)
	ctx := context.Background()

	_, err := fx.shares.Verify(ctx, "", "123456")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = fx.shares.Verify(ctx, "some-id", "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = fx.shares.Verify(ctx, "some-id", "12345")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = fx.shares.Verify(ctx, "some-id", "12345a")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestShareVerifyExpiredCode(t *testing.T) {
	fx := newShareFixture(t)
	ctx := context.Background()

	share, err := fx.shares.Create(ctx, fx.userID, fx.doc.ID, "reader@example.com")
	require.NoError(t, err)
	code := fx.sender.lastCode()
	require.Len(t, code, 6)

	_, err = fx.conn.ExecContext(ctx,
		"UPDATE document_shares SET otp_expires_at = $1 WHERE id = $2",
		time.Now().Unix()-10, share.ID)
	require.NoError(t, err)

	_, err = fx.shares.Verify(ctx, share.ID, code)
	require.ErrorIs(t, err, appErr.ErrShareExpired)
}

func TestShareVerifyLocksAfterMaxAttempts(t *testing.T) {
	fx := newShareFixture(t)
	ctx := context.Background()

	share, err := fx.shares.Create(ctx, fx.userID, fx.doc.ID, "reader@example.com")
	require.NoError(t, err)
	code := fx.sender.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	for i := 0; i < 4; i++ {
		_, err = fx.shares.Verify(ctx, share.ID, wrong)
		require.ErrorIs(t, err, appErr.ErrCodeMismatch)
	}
	_, err = fx.shares.Verify(ctx, share.ID, wrong)
	require.ErrorIs(t, err, appErr.ErrShareLocked)

	// even the right code is refused once locked
	_, err = fx.shares.Verify(ctx, share.ID, code)
	require.ErrorIs(t, err, appErr.ErrShareLocked)
}

func TestShareCreateRequiresMembership(t *testing.T) {
	fx := newShareFixture(t)

	_, err := fx.shares.Create(context.Background(), "not-a-member", fx.doc.ID, "reader@example.com")
	require.ErrorIs(t, err, appErr.ErrForbidden)
}

func TestShareSweepExpiresOldShares(t *testing.T) {
	fx := newShareFixture(t)
	ctx := context.Background()

	share, err := fx.shares.Create(ctx, fx.userID, fx.doc.ID, "reader@example.com")
	require.NoError(t, err)

	_, err = fx.conn.ExecContext(ctx,
		"UPDATE document_shares SET otp_expires_at = $1 WHERE id = $2",
		time.Now().Unix()-10, share.ID)
	require.NoError(t, err)

	n, err := fx.shares.SweepExpired(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))

	code := fx.sender.lastCode()
	_, err = fx.shares.Verify(ctx, share.ID, code)
	require.ErrorIs(t, err, appErr.ErrShareExpired)
}
