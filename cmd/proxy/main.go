package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/mdurant/safelease-ai/internal/infra/config"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
	"github.com/mdurant/safelease-ai/internal/proxy"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zl.Sync()

	gateway, err := proxy.New(cfg.Proxy, zl)
	if err != nil {
		log.Fatalf("failed to init proxy: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port)
	if err := gateway.Run(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("proxy stopped: %v", err)
	}
}
