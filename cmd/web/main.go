// Command web serves the browser live relay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/config"
	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/relay"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.studio/config.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := genaiapi.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	if client.ClientConfig().Backend == genai.BackendVertexAI {
		log.Infof("using Vertex AI backend")
	} else {
		log.Infof("using Gemini API backend")
	}

	server := relay.NewServer(relay.SDKConnector{Client: client}, relay.Config{Model: cfg.Relay.Model})
	return server.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Relay.Port))
}
