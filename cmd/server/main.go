package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/ngduyd/ecommerce-payments/pkg/commence"
	"github.com/ngduyd/ecommerce-payments/pkg/config"
)

func main() {
	cfg := config.Load()

	server, err := commence.Start(cfg)
	if err != nil {
		log.Fatalf("[Server] startup failed: %v", err)
	}

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	server.Register(engine)

	log.Printf("[Server] listening on %s", cfg.HTTP.Listen)
	if err := engine.Run(cfg.HTTP.Listen); err != nil {
		log.Fatalf("[Server] %v", err)
	}
}
