package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd != "serve" {
		log.Fatalf("unknown command: %s", cmd)
	}

	fs := pflag.NewFlagSet("serve", pflag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file, watched for api key changes")
	port := fs.Int("port", DefaultPort, "server port")
	dataFile := fs.String("data", DefaultDataFile, "data storage file")

	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath, os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	if fs.Changed("port") {
		cfg.Port = *port
	}
	if fs.Changed("data") {
		cfg.DataFile = *dataFile
	}
	if err := cfg.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *configPath, os.Getenv, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  datalog-server serve [--config config.yaml] [--port 8080] [--data data.json]")
}
