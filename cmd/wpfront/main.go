package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/wpfront"
)

// version is set at build time via ldflags.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(configPath())
	case "check":
		err = runCheck(configPath())
	case "version":
		fmt.Printf("wpfront %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if len(os.Args) > 2 {
		return os.Args[2]
	}
	return wpfront.EnvOr("WPFRONT_CONFIG", "")
}

func runServe(path string) error {
	cfg, err := wpfront.LoadConfig(path)
	if err != nil {
		return err
	}
	app := wpfront.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return errors.Join(err, app.Close())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

// runCheck verifies that the configuration loads and the WordPress API answers.
func runCheck(path string) error {
	cfg, err := wpfront.LoadConfig(path)
	if err != nil {
		return err
	}
	app := wpfront.New(cfg)
	if !app.WordPress.Configured() {
		return errors.New("WORDPRESS_API_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout)
	defer cancel()
	tags, err := app.WordPress.Tags(ctx)
	if err != nil {
		return fmt.Errorf("wordpress: %w", err)
	}
	fmt.Printf("ok: %s answers with %d tags\n", cfg.WordPressURL, len(tags))
	return nil
}

func printUsage() {
	fmt.Println(`wpfront - A server-rendered frontend for headless WordPress

Usage:
  wpfront [command] [config.yaml]

Commands:
  serve       Start the HTTP server (default)
  check       Validate configuration and reach the WordPress API
  version     Print the wpfront version
  help        Show this help message

Configuration is read from wpfront.yaml, .env and the environment.`)
}
