package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/observability"
)

func main() {
	clientCfg, loggerCfg := config.LoadClient()

	logger, err := observability.NewLogger(loggerCfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := &prompter{in: bufio.NewReader(os.Stdin), out: os.Stderr}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		p.readPassword = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }
	}

	cli := &cli{cfg: clientCfg, logger: logger, prompt: p, out: os.Stdout}
	if err := cli.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
