package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"taskPlanner/internal/app"
	"taskPlanner/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	// .env не обязателен, переменные могут прийти из окружения
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("загрузка конфигурации: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg)
	if err := application.Init(ctx); err != nil {
		log.Fatalf("инициализация приложения: %v", err)
	}
	defer application.Shutdown()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("запуск приложения: %v", err)
	}
}
