package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/docport/docport/internal/ai"
	"github.com/docport/docport/internal/config"
	"github.com/docport/docport/internal/db"
	"github.com/docport/docport/internal/filestore"
	"github.com/docport/docport/internal/handler"
	"github.com/docport/docport/internal/job"
	"github.com/docport/docport/internal/middleware"
	"github.com/docport/docport/internal/pkg/pdftext"
	"github.com/docport/docport/internal/repo"
	"github.com/docport/docport/internal/schedule"
	"github.com/docport/docport/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docport",
		Short: "docport backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docport server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	userRepo := repo.NewUserRepo(conn)
	tenantRepo := repo.NewTenantRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	shareRepo := repo.NewShareRepo(conn)
	summaryRepo := repo.NewDocumentSummaryRepo(conn)
	emailCodeRepo := repo.NewEmailVerificationRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	mailSender := service.NewEmailSender(cfg.Mail)
	jwtSecret := []byte(cfg.JWTSecret)

	authService := service.NewAuthService(userRepo, emailCodeRepo, mailSender, jwtSecret, time.Hour*time.Duration(cfg.JWTTTLHours))
	tenantService := service.NewTenantService(tenantRepo)
	documentService := service.NewDocumentService(docRepo, tenantService, store, time.Duration(cfg.Share.URLTTLSeconds)*time.Second)
	shareService := service.NewShareService(shareRepo, documentService, store, mailSender, jwtSecret, cfg.Share)

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	aiService := service.NewAIService(aiProvider, cfg.AI.Model, cfg.AI.MaxInputChars, time.Duration(cfg.AI.TimeoutSecs)*time.Second)
	summaryService := service.NewSummaryService(summaryRepo, store, aiService, pdftext.Extract)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewShareSweepJob(shareService), cfg.Share.SweepCron); err != nil {
		return fmt.Errorf("schedule share sweep: %w", err)
	}

	deps := handler.RouterDeps{
		Auth:         handler.NewAuthHandler(authService),
		Tenants:      handler.NewTenantHandler(tenantService),
		Documents:    handler.NewDocumentHandler(documentService),
		Shares:       handler.NewShareHandler(shareService, summaryService),
		JWTSecret:    jwtSecret,
		PublicWindow: time.Second,
		SendCooldown: 10 * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
