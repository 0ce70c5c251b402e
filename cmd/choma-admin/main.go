package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"choma/internal/config"
	"choma/internal/logger"
	"choma/internal/server"
)

var (
	port    = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode = flag.Bool("dev", false, "开发模式")
	dataDir = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  Choma Admin - 餐品批量导入服务")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	if err := logger.Initialize(cfg.Log.Env, cfg.Log.Level); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	if info.FileFound {
		logger.Log.Info("config loaded", zap.String("path", info.Path))
	}

	// 确保数据目录存在
	if dir, err := config.EnsureDataDir(cfg); err != nil {
		logger.Log.Warn("create data dir failed", zap.Error(err))
	} else {
		logger.Log.Info("data dir ready", zap.String("path", dir))
	}

	// 创建服务器
	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		logger.Log.Fatal("server init failed", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	// 启动服务器
	go func() {
		logger.Log.Info("server listening", zap.String("addr", addr), zap.Bool("dev", cfg.Server.DevMode))
		if err := srv.Run(addr); err != nil {
			logger.Log.Fatal("server stopped", zap.Error(err))
		}
	}()

	fmt.Printf("API 地址: http://localhost:%d/api\n", cfg.Server.Port)
	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Warn("shutdown incomplete", zap.Error(err))
	}
}
