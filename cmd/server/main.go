package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fishlog/internal/config"
	apphttp "fishlog/internal/http"
	"fishlog/internal/repository/sqlite"
	"fishlog/internal/service"
	"fishlog/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	catchRepo := sqlite.NewCatchRepository(db)
	folderRepo := sqlite.NewFolderRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := folderRepo.Init(ctx); err != nil {
		logger.Fatalf("init folder repository: %v", err)
	}
	if err := catchRepo.Init(ctx); err != nil {
		logger.Fatalf("init catch repository: %v", err)
	}
	if err := sessionRepo.Init(ctx); err != nil {
		logger.Fatalf("init session repository: %v", err)
	}

	if swept, err := sessionRepo.DeleteExpired(ctx, time.Now()); err != nil {
		logger.Warnf("sweep expired sessions: %v", err)
	} else if swept > 0 {
		logger.Infof("swept %d expired sessions", swept)
	}

	sessionTTL := time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute
	userService := service.NewUserService(userRepo, sessionRepo, cfg.Auth.JWTSecret, sessionTTL)
	catchService := service.NewCatchService(catchRepo, folderRepo)
	folderService := service.NewFolderService(folderRepo)

	storageSvc, localDir, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if localDir != "" {
		router.Static("/uploads", localDir)
	}

	handler := apphttp.NewHandler(userService, catchService, folderService, storageSvc, sessionTTL, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// buildStorage picks the photo store: S3 when a bucket is configured,
// local disk otherwise. The second return is the local uploads directory
// to serve statically, empty for S3.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, string, error) {
	if cfg.Storage.Bucket == "" {
		local, err := storage.NewLocalService(cfg.Uploads.Dir)
		if err != nil {
			return nil, "", err
		}
		logger.Infof("storing photos under %s", local.Dir())
		return local, local.Dir(), nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("storing photos in s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Bucket, cfg.Storage.KeyPrefix), "", nil
}
