package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config YAML file")
	addr := fs.String("addr", ":8080", "HTTP listen address")
	fs.Parse(args)

	logger := initLogger()
	defer logger.Sync()

	if *configPath == "" {
		fatalf("missing required --config flag")
	}

	cfg, err := config.LoadFile(*configPath, logger)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		fatalf("API_KEY environment variable is required")
	}

	var allowOrigins []string
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allowOrigins = append(allowOrigins, o)
			}
		}
	}

	logger.Info("starting deepclaude gateway", zap.String("addr", *addr), zap.String("config", *configPath))

	srv := NewServer(cfg, *addr, apiKey, allowOrigins, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	srv.WaitForShutdown()
	logger.Info("deepclaude gateway stopped")
}

func initLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

func printUsage() {
	fmt.Println(`deepclaude - DeepClaude-style reasoning/answer gateway

Usage:
  deepclaude serve --config <path> [--addr <addr>]
  deepclaude help

Environment:
  API_KEY         required, shared bearer token for Authorization: Bearer <API_KEY>
  PROXY_URL       optional, forward proxy for upstream calls
  ALLOW_ORIGINS   optional, comma-separated CORS allow-list

Examples:
  deepclaude serve --config ./config.yaml
  deepclaude serve --config ./config.yaml --addr :9090`)
}
