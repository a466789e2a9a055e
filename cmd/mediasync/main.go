package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mediasync/internal/reconcile"
)

// Exit codes beyond 0/1. 75 is EX_TEMPFAIL: another run holds the lock, so
// a scheduler may simply retry later.
const (
	exitFailure     = 1
	exitLocked      = 75
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Stderr))
}

func run(stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return exitCode(newRootCommand().ExecuteContext(ctx), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	}
	fmt.Fprintln(stderr, "Error:", err)
	if errors.Is(err, reconcile.ErrLocked) {
		return exitLocked
	}
	return exitFailure
}
