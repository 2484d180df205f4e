package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"lms.com/internal/api"
	"lms.com/internal/auth"
	"lms.com/internal/config"
	"lms.com/internal/domain"
	"lms.com/internal/engine"
	"lms.com/internal/infra"
)

func main() {
	root := &cobra.Command{
		Use:          "lms",
		Short:        "Library management service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化基础设施
	db, err := infra.NewDatabaseClient(cfg.Database)
	if err != nil {
		return err
	}

	// Redis (可选：注销 token 与多实例事件分发)
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = infra.NewRedisClient(cfg.Redis)
		if err := infra.PingRedis(ctx, rdb); err != nil {
			return err
		}
	} else {
		log.Println("Redis disabled: logout revocation is off and events stay in-process")
	}

	// 对象存储 (可选：头像上传)
	var storage domain.ObjectStorage
	if cfg.Storage.Bucket != "" {
		s3, err := infra.NewS3Storage(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		storage = s3
	} else {
		log.Println("Storage bucket not configured: profile picture uploads are disabled")
	}

	enforcer, err := auth.InitCasbin(db.DB)
	if err != nil {
		return err
	}

	// 3. 初始化引擎
	eng := engine.NewEngine(cfg, db, rdb, infra.NewWsManager(), storage)
	if err := eng.Start(); err != nil {
		return err
	}
	defer eng.Stop()

	// 4. 设置 Fiber 服务器
	app := api.NewServer(cfg, eng, enforcer)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		errCh <- app.Listen(cfg.Server.Port)
	}()

	// 5. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("Received %s, shutting down...", sig)
	case err := <-errCh:
		return err
	}

	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	return nil
}
