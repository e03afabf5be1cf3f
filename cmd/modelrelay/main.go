package main

import (
	"flag"
	stdlog "log"

	"github.com/ghiac/modelrelay"
	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/log"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config/config.yaml or RELAY_CONFIG_PATH)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log.Configure(cfg.Server.LogLevel)

	relay, err := modelrelay.New(cfg)
	if err != nil {
		stdlog.Fatalf("Failed to initialize relay: %v", err)
	}
	defer relay.Close()

	if err := relay.Run(); err != nil {
		stdlog.Fatalf("Server stopped: %v", err)
	}
}
