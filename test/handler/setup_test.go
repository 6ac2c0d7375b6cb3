package handler_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/docport/docport/internal/ai"
	"github.com/docport/docport/internal/config"
	"github.com/docport/docport/internal/filestore"
	"github.com/docport/docport/internal/handler"
	"github.com/docport/docport/internal/middleware"
	"github.com/docport/docport/internal/model"
	"github.com/docport/docport/internal/pkg/password"
	"github.com/docport/docport/internal/pkg/timeutil"
	"github.com/docport/docport/internal/repo"
	"github.com/docport/docport/internal/service"
	"github.com/docport/docport/test/testutil"
)

var h1CodePattern = regexp.MustCompile(`<h1>(\d{6})</h1>`)

type recordingSender struct {
	mu     sync.Mutex
	bodies []string
}

func (s *recordingSender) Send(to, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, htmlBody)
	return nil
}

func (s *recordingSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return ""
	}
	match := h1CodePattern.FindStringSubmatch(s.bodies[len(s.bodies)-1])
	if match == nil {
		return ""
	}
	return match[1]
}

type stubProvider struct {
	reply string
}

func (p *stubProvider) Name() string {
	return "stub"
}

func (p *stubProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	return p.reply, nil
}

func (p *stubProvider) GenerateStream(ctx context.Context, model string, prompt string, fn func(chunk string) error) error {
	return fn(p.reply)
}

type unavailableProvider struct{}

func (p *unavailableProvider) Name() string {
	return "unavailable"
}

func (p *unavailableProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	return "", ai.ErrUnavailable
}

func (p *unavailableProvider) GenerateStream(ctx context.Context, model string, prompt string, fn func(chunk string) error) error {
	return ai.ErrUnavailable
}

type testEnv struct {
	router  http.Handler
	conn    *sql.DB
	sender  *recordingSender
	tenants *repo.TenantRepo
	codes   *repo.EmailVerificationRepo
}

func newTestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setupEnv(t *testing.T) *testEnv {
	return setupEnvWithProvider(t, &stubProvider{reply: "stub summary"})
}

func setupEnvWithProvider(t *testing.T, provider ai.IProvider) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)

	userRepo := repo.NewUserRepo(conn)
	tenantRepo := repo.NewTenantRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	shareRepo := repo.NewShareRepo(conn)
	summaryRepo := repo.NewDocumentSummaryRepo(conn)
	emailCodeRepo := repo.NewEmailVerificationRepo(conn)

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir":        t.TempDir(),
			"public_url": "http://files.test",
		},
	})
	require.NoError(t, err)

	jwtSecret := []byte("test-secret")
	sender := &recordingSender{}
	authService := service.NewAuthService(userRepo, emailCodeRepo, sender, jwtSecret, time.Hour)
	tenantService := service.NewTenantService(tenantRepo)
	documentService := service.NewDocumentService(docRepo, tenantService, store, time.Hour)
	shareService := service.NewShareService(shareRepo, documentService, store, sender, jwtSecret, config.ShareConfig{
		BaseURL:       "https://docs.test",
		CodeTTLDays:   7,
		MaxAttempts:   5,
		URLTTLSeconds: 3600,
	})
	aiService := service.NewAIService(provider, "stub-model", 1000, 10*time.Second)
	summaryService := service.NewSummaryService(summaryRepo, store, aiService, func(data []byte) (string, error) {
		return string(data), nil
	})

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Tenants:   handler.NewTenantHandler(tenantService),
		Documents: handler.NewDocumentHandler(documentService),
		Shares:    handler.NewShareHandler(shareService, summaryService),
		JWTSecret: jwtSecret,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return &testEnv{
		router:  engine,
		conn:    conn,
		sender:  sender,
		tenants: tenantRepo,
		codes:   emailCodeRepo,
	}
}

func (e *testEnv) seedLoginCode(t *testing.T, email, code string) {
	t.Helper()
	hash, err := password.Hash(code)
	require.NoError(t, err)
	now := timeutil.NowUnix()
	require.NoError(t, e.codes.Create(context.Background(), &model.EmailVerificationCode{
		ID:        newTestID(),
		Email:     email,
		Purpose:   "login",
		CodeHash:  hash,
		Used:      0,
		Ctime:     now,
		ExpiresAt: now + 600,
	}))
}

func (e *testEnv) addTenantMember(t *testing.T, userID string) string {
	t.Helper()
	tenantID := newTestID()
	now := timeutil.NowUnix()
	require.NoError(t, e.tenants.Create(context.Background(), &model.Tenant{
		ID: tenantID, Name: "tenant-" + tenantID[:8], Ctime: now,
	}))
	require.NoError(t, e.tenants.AddMember(context.Background(), tenantID, userID, "owner", now))
	return tenantID
}
