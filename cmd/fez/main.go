// Package main provides the entry point for the fez CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cmeister2/fez/internal/cli"
	"github.com/cmeister2/fez/internal/signal"
)

// Set via -ldflags at build time.
//
//nolint:gochecknoglobals // ldflags targets
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	h := signal.NewHandler(context.Background())
	err := cli.Execute(h.Context(), cli.BuildInfo{Version: version, Commit: commit, Date: date})
	interrupted := h.WasInterrupted()
	h.Stop()
	if interrupted {
		_, _ = fmt.Fprintln(os.Stderr, "fez: interrupted")
	}
	os.Exit(cli.ExitCode(err, interrupted))
}
