package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/scenforge/scenforge/cmd"
	errUtils "github.com/scenforge/scenforge/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.RootCmd.ExecuteContext(ctx)
	errUtils.CheckErrorPrintAndExit(err)
}
