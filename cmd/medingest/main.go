package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/medingest/internal/adapters/driving/cli"
	"github.com/custodia-labs/medingest/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version string

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file is optional; MEDINGEST_* variables may come from the shell.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Close() //nolint:errcheck

	cli.SetVersion(version)
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
