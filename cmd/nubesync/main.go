package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nubesync/nubesync/internal/cli"
)

// Set with -ldflags "-X main.version=... -X main.features=version_migration".
var (
	version  = "dev"
	features = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.BuildInfo{Version: version, Features: features}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
