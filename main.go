package main

import (
	"flag"
	"log"
	"strings"

	"envelope/config"
	"envelope/database"
	"envelope/logger"
	"envelope/middleware"
	"envelope/router"
	"envelope/scheduler"
	"envelope/service"
)

// @title 信封预算 API
// @version 1.0
// @description 多人协作的信封预算系统：账户、分类、月度预算、交易流水、计划成员与邀请
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Println("信封预算 v1.0.0")
		return
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}

	lg := logger.Init(cfg.Log.Level, cfg.Log.Format)
	config.PrintConfig()

	if err := database.Init(cfg); err != nil {
		lg.Critical("数据库初始化失败", "err", err)
		log.Fatalf("数据库初始化失败: %v", err)
	}

	middleware.InitJWT(cfg)

	notifier := service.NewNotifier(cfg.AMQP)
	defer notifier.Close()

	svc := router.NewServices(cfg, database.DB, notifier)

	jobs, err := scheduler.New(cfg.Cleanup, svc.Messages, svc.Invitations)
	if err != nil {
		log.Fatalf("定时任务初始化失败: %v", err)
	}
	jobs.Start()
	defer jobs.Stop()

	r := router.SetupRouter(cfg, svc)

	lg.Info("信封预算已启动",
		"port", cfg.Server.Port,
		"swagger", "http://localhost"+cfg.Server.Port+"/swagger/index.html",
		"api", "http://localhost"+cfg.Server.Port+"/api/v1/",
	)

	if err := r.Run(cfg.Server.Port); err != nil {
		lg.Critical("服务器启动失败", "err", err)
		jobs.Stop()
		log.Fatalf("服务器启动失败: %v", err)
	}
}
