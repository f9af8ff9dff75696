package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/victornm/battlebrains/internal/config"
	"github.com/victornm/battlebrains/internal/server"
)

const defaultConfigPath = "config/battlebrains.yaml"

func main() {
	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c)
	if err != nil {
		log.Fatalf("Init server failed: %v", err)
	}

	slog.Info("battlebrains: starting", "port", c.HTTP.Port, "round_seconds", c.Game.RoundSeconds)
	go s.Start()

	<-shutdown
	s.Shutdown()
}

func loadConfig() (server.Config, error) {
	var c server.Config
	c.HTTP.Port = 3000
	c.Game.RoundSeconds = 15

	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		p = defaultConfigPath
	}

	if err := config.Load(p, &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
