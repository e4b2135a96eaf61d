package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lightcycle/config"
	"lightcycle/server"
)

// 光轮竞技场入口：加载配置，启动 HTTP + WebSocket 服务与房间管理器
func main() {
	var addr, logFile, logLevel, envFile string
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :3000 (overrides TRON_ADDR)")
	flag.StringVar(&logFile, "log", "", "log file path (overrides TRON_LOG_FILE)")
	flag.StringVar(&logLevel, "log-level", "", "stderr log level: debug|info|warn|error (overrides TRON_LOG_LEVEL)")
	flag.StringVar(&envFile, "env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// zap 日志：滚动文件 + stderr
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer server.SyncLogger()

	rooms := server.NewRoomManager(cfg)
	dispatcher := server.NewDispatcher(rooms)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(cfg, rooms, dispatcher),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		server.Log.Infof("lightcycle arena listening on %s (tick %v, broadcast %v)", cfg.Addr, cfg.TickInterval, cfg.BroadcastInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnw("shutdown", "err", err)
	}
	rooms.Close()
}
