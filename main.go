package main

import (
	"coursegen_backend/internal/app"
	"coursegen_backend/internal/config"
	"coursegen_backend/pkg/configwatcher"
	"coursegen_backend/pkg/logger"
	"flag"
	"log"
)

func main() {
	watch := flag.Bool("watch-config", false, "监听配置文件变更并热加载")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *watch {
		go configwatcher.WatchConfig("configs/config.yaml", application.ApplyConfig)
	}

	application.Run()
}
